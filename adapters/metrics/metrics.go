// Package metrics provides Prometheus metrics collection for searchtable.
package metrics

import (
	"errors"
	"time"

	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
	"github.com/artpar/searchtable/core/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "searchtable"

// Load outcomes used as the status label.
const (
	StatusOK    = "ok"
	StatusError = "error"
	StatusStale = "stale"
)

// Collector holds all Prometheus metrics for searchtable.
type Collector struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Load metrics
	LoadsTotal    *prometheus.CounterVec
	LoadDuration  prometheus.Histogram
	LoadsInFlight prometheus.Gauge

	// Schema metrics
	Derivations           prometheus.Counter
	DerivationDiagnostics prometheus.Counter

	// Session metrics
	ActiveSessions prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

var _ table.Observer = (*Collector)(nil)

// New creates a collector registered with the default registry.
func New() *Collector {
	return build(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return build(promauto.With(reg))
}

func build(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		LoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Table loads by outcome (ok, error, stale)",
			},
			[]string{"status"},
		),
		LoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Duration of data loads in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		LoadsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "loads_in_flight",
				Help:      "Number of loads currently waiting for the loader",
			},
		),
		Derivations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_derivations_total",
				Help:      "Total number of schema derivations from field lists",
			},
		),
		DerivationDiagnostics: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_diagnostics_total",
				Help:      "Total number of field configuration problems found while deriving",
			},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of open table sessions",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// LoadStarted implements table.Observer.
func (c *Collector) LoadStarted() {
	c.LoadsInFlight.Inc()
}

// LoadFinished implements table.Observer.
func (c *Collector) LoadFinished(err error, elapsed time.Duration) {
	c.LoadsInFlight.Dec()
	c.LoadDuration.Observe(elapsed.Seconds())

	status := StatusOK
	switch {
	case errors.Is(err, table.ErrStale):
		status = StatusStale
	case err != nil:
		status = StatusError
	}
	c.LoadsTotal.WithLabelValues(status).Inc()
}

// Derived records one schema derivation. Its signature matches
// shell.Options.OnDerive.
func (c *Collector) Derived(_ schema.Layout, diags []field.Diagnostic) {
	c.Derivations.Inc()
	c.DerivationDiagnostics.Add(float64(len(diags)))
}

// Reloaded records a config reload attempt.
func (c *Collector) Reloaded(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

// Sessions records the number of open sessions.
func (c *Collector) Sessions(n int) {
	c.ActiveSessions.Set(float64(n))
}
