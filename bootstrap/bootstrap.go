// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file or, without one, from SEARCHTABLE_*
// environment variables.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/searchtable/adapters/metrics"
	"github.com/artpar/searchtable/app"
	"github.com/artpar/searchtable/config"
	chanhttp "github.com/artpar/searchtable/core/channel/http"
	"github.com/artpar/searchtable/core/events"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/locale"
	"github.com/artpar/searchtable/core/selection"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	Bus        *events.Bus
	Catalog    *locale.Catalog
	Sessions   *app.SessionService
	Source     *Source
	HTTPServer *http.Server
}

// Options provides optional configuration for application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When it does not exist the
	// configuration is read from the environment.
	ConfigPath string

	// Version is reported by /version.
	Version string

	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// New creates and initializes the application.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := NewLogger(cfg.Logging, out)

	var holder *config.Holder
	if opts.ConfigPath != "" && fileExists(opts.ConfigPath) {
		holder, err = config.NewHolder(opts.ConfigPath, logger)
	} else {
		holder, err = config.NewHolderFromConfig(cfg, logger)
	}
	if err != nil {
		return nil, err
	}
	cfg = holder.Get()

	a := &App{
		Logger: logger,
		Config: holder,
		Bus:    events.NewBus(logger),
	}

	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Metrics = metrics.NewWithRegistry(a.Registry)
	}

	if err := a.initCatalog(cfg.Locale); err != nil {
		return nil, err
	}

	fields := holder.Fields()
	if diags := field.Validate(fields); len(diags) > 0 {
		for _, d := range diags {
			logger.Warn().Int("index", d.Index).Str("key", d.Key).Msg(d.Message)
		}
	}

	a.Source, err = OpenSource(ctx, cfg.Source, cfg.Table.RowKey, fields, logger)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	RegisterHooks(a.Bus, logger)

	a.Sessions = app.NewSessionService(
		a.Source.Loader,
		fields,
		settingsFrom(cfg),
		a.Catalog,
		a.Bus,
		sessionHooks(a.Metrics),
		logger,
	)

	holder.OnChange(a.applyConfig)
	if a.Metrics != nil {
		holder.OnReload(a.Metrics.Reloaded)
	}

	a.initHTTPServer(cfg, opts.Version)

	logger.Info().
		Str("fields", cfg.Fields.Path).
		Int("count", len(fields)).
		Str("source", cfg.Source.Driver).
		Msg("application initialized")

	return a, nil
}

func (a *App) initCatalog(cfg config.LocaleConfig) error {
	if cfg.Catalog == "" {
		a.Catalog = locale.NewCatalog(nil)
		return nil
	}
	cat, err := locale.LoadCatalog(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	a.Catalog = cat
	a.Logger.Info().Strs("locales", cat.Locales()).Msg("translation catalog loaded")
	return nil
}

func (a *App) initHTTPServer(cfg *config.Config, version string) {
	opts := chanhttp.Options{
		Logger:  a.Logger,
		Version: version,
		Timeout: cfg.Server.WriteTimeout,
	}
	if a.Metrics != nil {
		opts.Metrics = a.Metrics
		opts.MetricsPath = cfg.Metrics.Path
		opts.Gatherer = a.Registry
	}

	ch := chanhttp.New(a.Sessions, opts)
	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      ch.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// applyConfig pushes a reloaded configuration into the running services.
func (a *App) applyConfig(cfg *config.Config, fields []field.Descriptor) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.Sessions.ApplySettings(settingsFrom(cfg))
	a.Sessions.ApplyFields(context.Background(), fields)
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	cfg := a.Config.Get()
	if cfg.Fields.Watch {
		if err := a.Config.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("file watching disabled")
		}
	}
	a.Config.WatchSignals()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	timeout := a.Config.Get().Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Config.Stop()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	for _, id := range a.Sessions.IDs() {
		if sess, err := a.Sessions.Get(id); err == nil {
			if err := sess.Table.WaitContext(ctx); err != nil {
				a.Logger.Warn().Err(err).Str("session", id).Msg("abandoning in-flight load")
			}
		}
		_ = a.Sessions.Close(ctx, id)
	}

	if a.Source != nil {
		if err := a.Source.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// NewLogger builds the application logger and sets the global level.
// Format "console" gives human readable output, anything else JSON.
func NewLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(w).With().Timestamp().Logger()
}

func settingsFrom(cfg *config.Config) app.SessionSettings {
	return app.SessionSettings{
		RowKey:        cfg.Table.RowKey,
		PageSize:      cfg.Table.PageSize,
		SelectionType: selection.ParseMode(cfg.Table.SelectionType),
		SelectShowKey: cfg.Table.SelectShowKey,
		ExtendParams:  cfg.Table.ExtendParams,
		Locale:        cfg.Locale.Default,
		Autoload:      cfg.Table.Autoload,
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
