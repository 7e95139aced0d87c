// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Fields  FieldsConfig  `yaml:"fields"`
	Locale  LocaleConfig  `yaml:"locale"`
	Table   TableConfig   `yaml:"table"`
	Source  SourceConfig  `yaml:"source"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// FieldsConfig locates the field descriptor file.
type FieldsConfig struct {
	Path  string `yaml:"path"`  // YAML or JSON, relative to the config file
	Watch bool   `yaml:"watch"` // Reload sessions when the file changes
}

// LocaleConfig configures title translation.
type LocaleConfig struct {
	Default string `yaml:"default"`
	Catalog string `yaml:"catalog"` // YAML catalog, relative to the config file
}

// TableConfig configures every table session.
type TableConfig struct {
	RowKey        string         `yaml:"row_key"`
	PageSize      int            `yaml:"page_size"`
	SelectionType string         `yaml:"selection_type"` // "checkbox" or "radio"
	SelectShowKey string         `yaml:"select_show_key"`
	ExtendParams  map[string]any `yaml:"extend_params"`
	Autoload      bool           `yaml:"autoload"`
}

// SourceConfig configures where rows come from.
type SourceConfig struct {
	Driver string `yaml:"driver"` // "memory", "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema,omitempty"` // postgres search_path schema
	Table  string `yaml:"table"`
	Seed   string `yaml:"seed,omitempty"` // YAML or JSON rows loaded at startup
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	resolvePaths(&cfg, filepath.Dir(path))

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	SEARCHTABLE_FIELDS_PATH      - Field descriptor file (required)
//	SEARCHTABLE_FIELDS_WATCH     - Reload on change (default: false)
//	SEARCHTABLE_SERVER_HOST      - Server host (default: 0.0.0.0)
//	SEARCHTABLE_SERVER_PORT      - Server port (default: 8080)
//	SEARCHTABLE_LOCALE           - Default locale (default: en)
//	SEARCHTABLE_LOCALE_CATALOG   - Translation catalog file
//	SEARCHTABLE_ROW_KEY          - Row key attribute (default: id)
//	SEARCHTABLE_PAGE_SIZE        - Page size (default: 10)
//	SEARCHTABLE_SELECTION_TYPE   - checkbox or radio (default: checkbox)
//	SEARCHTABLE_SOURCE_DRIVER    - memory, sqlite or postgres (default: memory)
//	SEARCHTABLE_SOURCE_DSN       - Database DSN
//	SEARCHTABLE_SOURCE_TABLE     - Table to read rows from
//	SEARCHTABLE_LOG_LEVEL        - Log level: debug, info, warn, error (default: info)
//	SEARCHTABLE_LOG_FORMAT       - Log format: json or console (default: json)
//	SEARCHTABLE_METRICS_ENABLED  - Enable /metrics endpoint
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set SEARCHTABLE_FIELDS_PATH")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("SEARCHTABLE_FIELDS_PATH") != ""
}

// applyEnvOverrides applies SEARCHTABLE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SEARCHTABLE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SEARCHTABLE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SEARCHTABLE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("SEARCHTABLE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("SEARCHTABLE_FIELDS_PATH"); v != "" {
		cfg.Fields.Path = v
	}
	if v := os.Getenv("SEARCHTABLE_FIELDS_WATCH"); v != "" {
		cfg.Fields.Watch = parseBool(v)
	}

	if v := os.Getenv("SEARCHTABLE_LOCALE"); v != "" {
		cfg.Locale.Default = v
	}
	if v := os.Getenv("SEARCHTABLE_LOCALE_CATALOG"); v != "" {
		cfg.Locale.Catalog = v
	}

	if v := os.Getenv("SEARCHTABLE_ROW_KEY"); v != "" {
		cfg.Table.RowKey = v
	}
	if v := os.Getenv("SEARCHTABLE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Table.PageSize = n
		}
	}
	if v := os.Getenv("SEARCHTABLE_SELECTION_TYPE"); v != "" {
		cfg.Table.SelectionType = v
	}

	if v := os.Getenv("SEARCHTABLE_SOURCE_DRIVER"); v != "" {
		cfg.Source.Driver = v
	}
	if v := os.Getenv("SEARCHTABLE_SOURCE_DSN"); v != "" {
		cfg.Source.DSN = v
	}
	if v := os.Getenv("SEARCHTABLE_SOURCE_TABLE"); v != "" {
		cfg.Source.Table = v
	}

	if v := os.Getenv("SEARCHTABLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SEARCHTABLE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SEARCHTABLE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SEARCHTABLE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Locale.Default == "" {
		cfg.Locale.Default = "en"
	}

	if cfg.Table.RowKey == "" {
		cfg.Table.RowKey = "id"
	}
	if cfg.Table.PageSize == 0 {
		cfg.Table.PageSize = 10
	}
	if cfg.Table.SelectionType == "" {
		cfg.Table.SelectionType = "checkbox"
	}

	if cfg.Source.Driver == "" {
		cfg.Source.Driver = "memory"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// resolvePaths makes file references relative to the config file directory.
func resolvePaths(cfg *Config, dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	cfg.Fields.Path = abs(cfg.Fields.Path)
	cfg.Locale.Catalog = abs(cfg.Locale.Catalog)
	cfg.Source.Seed = abs(cfg.Source.Seed)
	if cfg.Source.Driver == "sqlite" && cfg.Source.DSN != ":memory:" {
		cfg.Source.DSN = abs(cfg.Source.DSN)
	}
}

func validate(cfg *Config) error {
	if cfg.Fields.Path == "" {
		return fmt.Errorf("fields.path is required")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Table.PageSize < 0 {
		return fmt.Errorf("table.page_size must not be negative, got %d", cfg.Table.PageSize)
	}
	validSelection := map[string]bool{"checkbox": true, "radio": true}
	if !validSelection[cfg.Table.SelectionType] {
		return fmt.Errorf("table.selection_type must be 'checkbox' or 'radio', got %q", cfg.Table.SelectionType)
	}

	switch cfg.Source.Driver {
	case "memory":
	case "sqlite", "postgres":
		if cfg.Source.DSN == "" {
			return fmt.Errorf("source.dsn is required when source.driver is %q", cfg.Source.Driver)
		}
		if cfg.Source.Table == "" {
			return fmt.Errorf("source.table is required when source.driver is %q", cfg.Source.Driver)
		}
	default:
		return fmt.Errorf("source.driver must be one of: memory, sqlite, postgres")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
