package bootstrap

import (
	"context"

	"github.com/artpar/searchtable/adapters/metrics"
	"github.com/artpar/searchtable/app"
	"github.com/artpar/searchtable/core/events"
	"github.com/rs/zerolog"
)

// RegisterHooks subscribes the application's event handlers to bus.
func RegisterHooks(bus *events.Bus, logger zerolog.Logger) {
	log := logger.With().Str("component", "events").Logger()

	bus.Subscribe("*", func(_ context.Context, e events.Event) error {
		log.Debug().
			Str("event", e.Name).
			Str("session", e.Session).
			Interface("data", e.Data).
			Msg("event")
		return nil
	})

	bus.Subscribe(events.FieldsChanged, func(_ context.Context, e events.Event) error {
		log.Info().Str("session", e.Session).Msg("session fields replaced")
		return nil
	})
}

// sessionHooks connects session telemetry to the collector. A nil collector
// yields no hooks.
func sessionHooks(m *metrics.Collector) app.Hooks {
	if m == nil {
		return app.Hooks{}
	}
	return app.Hooks{
		Observer: m,
		OnDerive: m.Derived,
		Sessions: m.Sessions,
	}
}
