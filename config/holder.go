package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	"github.com/artpar/searchtable/core/field"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to the configuration and the field list
// it points at, with hot reload support.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	fields   []field.Descriptor
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config, []field.Descriptor)
	onReload []func(error)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads the configuration at path and the field file it names.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return newHolder(cfg, absPath, logger)
}

// NewHolderFromConfig wraps an already loaded configuration, e.g. one built
// by LoadFromEnv. Reload only re-reads the field file.
func NewHolderFromConfig(cfg *Config, logger zerolog.Logger) (*Holder, error) {
	return newHolder(cfg, "", logger)
}

func newHolder(cfg *Config, path string, logger zerolog.Logger) (*Holder, error) {
	fields, err := field.ParseFile(cfg.Fields.Path)
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}
	return &Holder{
		config: cfg,
		fields: fields,
		path:   path,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Fields returns the current field list.
func (h *Holder) Fields() []field.Descriptor {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.fields)
}

// Reload re-reads the configuration and the field file. On error the old
// values are kept.
func (h *Holder) Reload() error {
	err := h.reload()
	h.mu.RLock()
	hooks := slices.Clone(h.onReload)
	h.mu.RUnlock()
	for _, fn := range hooks {
		fn(err)
	}
	return err
}

func (h *Holder) reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg := h.Get()
	if h.path != "" {
		cfg, err := Load(h.path)
		if err != nil {
			h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
			return fmt.Errorf("reload config: %w", err)
		}
		newCfg = cfg
	}

	fields, err := field.ParseFile(newCfg.Fields.Path)
	if err != nil {
		h.logger.Error().Err(err).Str("fields", newCfg.Fields.Path).Msg("fields reload failed, keeping old config")
		return fmt.Errorf("reload fields: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	h.fields = fields
	listeners := slices.Clone(h.onChange)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg, len(fields))

	for _, fn := range listeners {
		fn(newCfg, slices.Clone(fields))
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called after a successful reload.
func (h *Holder) OnChange(fn func(*Config, []field.Descriptor)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnReload registers a callback receiving the outcome of every reload.
func (h *Holder) OnReload(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

// WatchFile starts watching the config file and the field file for changes.
// Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch directories; editors that save atomically replace the file.
	for _, dir := range h.watchDirs() {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch directory: %w", err)
		}
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Str("fields", h.Get().Fields.Path).Msg("watching files for changes")
	return nil
}

func (h *Holder) watchFiles() []string {
	var files []string
	if h.path != "" {
		files = append(files, h.path)
	}
	if p := h.Get().Fields.Path; p != "" {
		if abs, err := filepath.Abs(p); err == nil {
			files = append(files, abs)
		}
	}
	return files
}

func (h *Holder) watchDirs() []string {
	var dirs []string
	for _, f := range h.watchFiles() {
		if d := filepath.Dir(f); !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil || !slices.Contains(h.watchFiles(), abs) {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("watched file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config, fields int) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if old.Locale.Default != new.Locale.Default {
		h.logger.Info().
			Str("old", old.Locale.Default).
			Str("new", new.Locale.Default).
			Msg("default locale changed")
	}

	if old.Table.PageSize != new.Table.PageSize {
		h.logger.Info().
			Int("old", old.Table.PageSize).
			Int("new", new.Table.PageSize).
			Msg("page size changed, applies to new sessions")
	}

	h.logger.Info().Int("fields", fields).Msg("field list loaded")
}

// ReloadableFields returns which settings can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"fields.path",
		"locale.default",
		"table.page_size",
		"table.selection_type",
		"table.extend_params",
		"logging.level",
	}
}

// NonReloadableFields returns which settings require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"source.driver",
		"source.dsn",
		"metrics.enabled",
	}
}
