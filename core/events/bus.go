// Package events provides a synchronous publish/subscribe bus used to
// announce state changes of search-table sessions.
package events

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Event names published by the shell and the session service.
const (
	SelectionChanged = "selection.changed"
	FieldsChanged    = "fields.changed"
	LocaleChanged    = "locale.changed"
	TableReset       = "table.reset"
	TableRefreshed   = "table.refreshed"
	SessionCreated   = "session.created"
	SessionClosed    = "session.closed"
)

// Event is a published event.
type Event struct {
	// Name is the event name, e.g. "selection.changed".
	Name string

	// Session is the id of the session the event belongs to, if any.
	Session string

	// Data is the event payload.
	Data map[string]any
}

// Handler processes an event.
type Handler func(ctx context.Context, event Event) error

// Publisher is the publishing side of a Bus.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus is a publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler. Patterns:
//   - "selection.changed" - exact match
//   - "selection.*" - every selection event
//   - "*" - every event
func (b *Bus) Subscribe(pattern string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[pattern] = append(b.handlers[pattern], handler)
}

// Publish calls every matching handler synchronously, exact subscribers
// first, then prefix wildcards, then global ones. Handler errors are logged
// and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("session", event.Session).
		Int("handlers", len(matched)).
		Msg("event published")

	for _, h := range matched {
		if err := h(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// HasSubscribers reports whether any handler would receive the event.
func (b *Bus) HasSubscribers(name string) bool {
	return len(b.match(name)) > 0
}

// match copies the handlers so they run without the lock held, which lets
// a handler subscribe or publish.
func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Handler
	out = append(out, b.handlers[name]...)
	if prefix, _, ok := strings.Cut(name, "."); ok {
		out = append(out, b.handlers[prefix+".*"]...)
	}
	if name != "*" {
		out = append(out, b.handlers["*"]...)
	}
	return out
}

// Nop discards events.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) {}
