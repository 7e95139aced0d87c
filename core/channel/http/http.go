// Package http serves search-table sessions over a JSON:API surface.
// Every session route operates on one app.Session and returns its state.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/artpar/searchtable/adapters/metrics"
	"github.com/artpar/searchtable/app"
	"github.com/artpar/searchtable/pkg/jsonapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Options configures a Channel.
type Options struct {
	Logger zerolog.Logger

	// Metrics enables request metrics. MetricsPath and Gatherer control the
	// exporter; a nil Gatherer uses the default registry.
	Metrics     *metrics.Collector
	MetricsPath string
	Gatherer    prometheus.Gatherer

	Version string
	Timeout time.Duration
}

// Channel is the HTTP surface of a SessionService.
type Channel struct {
	router   chi.Router
	sessions *app.SessionService
	logger   zerolog.Logger
	version  string
}

// New creates a channel serving sessions.
func New(sessions *app.SessionService, opts Options) *Channel {
	c := &Channel{
		router:   chi.NewRouter(),
		sessions: sessions,
		logger:   opts.Logger.With().Str("component", "http").Logger(),
		version:  opts.Version,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	r := c.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(c.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))
	if opts.Metrics != nil {
		r.Use(NewMetricsMiddleware(opts.Metrics))
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteNotFound(w, "route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteMethodNotAllowed(w, r.Method, nil)
	})

	r.Get("/health", c.health)
	r.Get("/version", c.handleVersion)
	r.Mount("/_schema", NewSchemaHandler(sessions).Routes())

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", c.listSessions)
		r.Post("/", c.createSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(c.sessionCtx)
			r.Get("/", c.getSession)
			r.Delete("/", c.closeSession)

			r.Post("/refresh", c.refresh)
			r.Post("/reset", c.reset)
			r.Post("/layout", c.doLayout)

			r.Put("/filters", c.setFilters)
			r.Delete("/filters", c.clearFilters)
			r.Put("/sorts", c.setSorts)
			r.Delete("/sorts", c.clearSorts)
			r.Put("/pagination", c.setPagination)
			r.Put("/search", c.setSearch)
			r.Put("/locale", c.setLocale)

			r.Get("/selection", c.getSelection)
			r.Put("/selection", c.setSelection)
			r.Post("/selection", c.addSelection)
			r.Delete("/selection", c.removeSelection)

			r.Get("/rows", c.listRows)
			r.Put("/rows", c.setRows)
			r.Post("/rows", c.addRow)
			r.Delete("/rows/{key}", c.deleteRow)

			r.Get("/edit-rows", c.getEditRows)
			r.Post("/edit-rows", c.addEditRows)

			r.Get("/dialog", c.getDialog)
			r.Post("/dialog", c.openDialog)
			r.Put("/dialog", c.setDialogValues)
			r.Post("/dialog/submit", c.submitDialog)
			r.Delete("/dialog", c.closeDialog)
		})
	})

	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "http"
}

// Handler returns the HTTP handler.
func (c *Channel) Handler() http.Handler {
	return c.router
}

func (c *Channel) health(w http.ResponseWriter, r *http.Request) {
	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{
		"status":   "ok",
		"sessions": c.sessions.Len(),
	})
}

func (c *Channel) handleVersion(w http.ResponseWriter, r *http.Request) {
	jsonapi.WriteDocument(w, http.StatusOK, jsonapi.NewDocument().
		JSONAPI().
		Meta("version", c.version).
		Build())
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
