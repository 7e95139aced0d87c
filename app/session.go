// Package app contains the SessionService, which owns the live search-table
// sessions served over HTTP.
package app

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/artpar/searchtable/adapters/idgen"
	"github.com/artpar/searchtable/core/events"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
	"github.com/artpar/searchtable/core/search"
	"github.com/artpar/searchtable/core/selection"
	"github.com/artpar/searchtable/core/shell"
	"github.com/artpar/searchtable/core/table"
	"github.com/rs/zerolog"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionSettings configure new sessions.
type SessionSettings struct {
	RowKey        string
	PageSize      int
	SelectionType selection.Mode
	SelectShowKey string
	ExtendParams  map[string]any
	Locale        string
	Autoload      bool
}

// IDGenerator produces session ids.
type IDGenerator interface {
	New() string
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithIDGenerator replaces the default random session ids.
func WithIDGenerator(g IDGenerator) SessionOption {
	return func(s *SessionService) { s.ids = g }
}

// Hooks receive telemetry. Every field is optional.
type Hooks struct {
	Observer table.Observer
	OnDerive func(schema.Layout, []field.Diagnostic)
	Sessions func(n int)
}

// Session is one mounted search table.
type Session struct {
	ID      string
	Created time.Time
	RowKey  string

	Shell   *shell.Shell
	Table   *table.Table
	Primary *search.Panel
	More    *search.Panel
	Form    *shell.Form
}

// SessionView is a snapshot of a session.
type SessionView struct {
	ID          string             `json:"id"`
	Created     time.Time          `json:"created"`
	Locale      string             `json:"locale"`
	Layout      schema.Layout      `json:"layout"`
	Table       table.View         `json:"table"`
	Selection   selection.Snapshot `json:"selection"`
	Summary     string             `json:"summary"`
	Search      map[string]any     `json:"search"`
	More        map[string]any     `json:"more"`
	Dialog      shell.DialogState  `json:"dialog"`
	EditRows    []selection.Record `json:"editRows"`
	Diagnostics []field.Diagnostic `json:"diagnostics,omitempty"`
}

// View returns a snapshot of the session.
func (s *Session) View() SessionView {
	diags := s.Shell.Diagnostics()
	return SessionView{
		ID:          s.ID,
		Created:     s.Created,
		Locale:      s.Shell.Locale(),
		Layout:      s.Shell.Layout(),
		Table:       s.Table.View(),
		Selection:   s.Shell.GetSelection(),
		Summary:     s.Shell.SelectionSummary(),
		Search:      s.Primary.Values(),
		More:        s.More.Values(),
		Dialog:      s.Shell.Dialog(),
		EditRows:    s.Shell.GetEditTableRowForm(),
		Diagnostics: diags,
	}
}

// SessionService creates, tracks and reconfigures sessions.
type SessionService struct {
	loader     table.Loader
	translator schema.Translator
	bus        events.Publisher
	hooks      Hooks
	ids        IDGenerator
	logger     zerolog.Logger

	mu       sync.RWMutex
	fields   []field.Descriptor
	settings SessionSettings
	sessions map[string]*Session
}

// NewSessionService creates a session service. A nil loader gives static
// tables filled through SetTableData.
func NewSessionService(
	loader table.Loader,
	fields []field.Descriptor,
	settings SessionSettings,
	translator schema.Translator,
	bus events.Publisher,
	hooks Hooks,
	logger zerolog.Logger,
	opts ...SessionOption,
) *SessionService {
	if bus == nil {
		bus = events.Nop{}
	}
	s := &SessionService{
		loader:     loader,
		translator: translator,
		bus:        bus,
		hooks:      hooks,
		logger:     logger.With().Str("component", "sessions").Logger(),
		fields:     slices.Clone(fields),
		settings:   settings,
		sessions:   make(map[string]*Session),
		ids:        idgen.UUID{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create mounts a new session. An empty locale uses the default.
func (s *SessionService) Create(ctx context.Context, locale string) *Session {
	s.mu.RLock()
	fields := slices.Clone(s.fields)
	st := s.settings
	s.mu.RUnlock()

	if locale == "" {
		locale = st.Locale
	}

	id := s.ids.New()
	sh := shell.New(shell.Options{
		Session:       id,
		RowKey:        st.RowKey,
		SelectionMode: st.SelectionType,
		SelectShowKey: st.SelectShowKey,
		Translator:    s.translator,
		Locale:        locale,
		Logger:        s.logger,
		Bus:           s.bus,
		OnDerive:      s.hooks.OnDerive,
	}, fields)

	filters, sorts := sh.Defaults()
	tbl := table.New(s.loader, table.Options{
		RowKey:         st.RowKey,
		PageSize:       st.PageSize,
		DefaultFilters: filters,
		DefaultSorts:   sorts,
		DefaultSearch:  sh.SearchDefaults(),
		ExtendParams:   maps.Clone(st.ExtendParams),
		Logger:         s.logger.With().Str("session", id).Logger(),
		Observer:       s.hooks.Observer,
	})

	layout := sh.Layout()
	sess := &Session{
		ID:      id,
		Created: time.Now().UTC(),
		RowKey:  st.RowKey,
		Shell:   sh,
		Table:   tbl,
		Primary: search.NewPanel(layout.Search.Primary),
		More:    search.NewPanel(layout.Search.More),
		Form:    shell.NewForm(),
	}
	sh.AttachTable(tbl)
	sh.AttachSearch(sess.Primary, sess.More)
	sh.AttachForm(sess.Form)

	s.mu.Lock()
	s.sessions[id] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	s.reportCount(n)

	if st.Autoload {
		sh.Reset(ctx)
	}

	s.logger.Debug().Str("session", id).Str("locale", locale).Msg("session created")
	s.bus.Publish(ctx, events.Event{Name: events.SessionCreated, Session: id})
	return sess
}

// Get returns a session.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close unmounts a session. Loads still in flight finish in the background
// and are dropped with the session.
func (s *SessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.Shell.Detach()
	sess.Table.Close()
	s.reportCount(n)
	s.logger.Debug().Str("session", id).Msg("session closed")
	s.bus.Publish(ctx, events.Event{Name: events.SessionClosed, Session: id})
	return nil
}

// IDs returns the ids of open sessions, sorted.
func (s *SessionService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of open sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Fields returns the field list new sessions are created with.
func (s *SessionService) Fields() []field.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fields)
}

// Layout derives the schemas of the current field list for a locale.
func (s *SessionService) Layout(locale string) (schema.Layout, []field.Diagnostic) {
	s.mu.RLock()
	fields := slices.Clone(s.fields)
	if locale == "" {
		locale = s.settings.Locale
	}
	s.mu.RUnlock()

	l, diags := schema.Derive(fields)
	return schema.Localize(l, s.translator, locale), diags
}

// ApplyFields replaces the field list and re-derives every live session.
func (s *SessionService) ApplyFields(ctx context.Context, fields []field.Descriptor) {
	s.mu.Lock()
	s.fields = slices.Clone(fields)
	live := s.liveLocked()
	s.mu.Unlock()

	for _, sess := range live {
		sess.Shell.SetFields(ctx, fields)
	}
	s.logger.Info().Int("fields", len(fields)).Int("sessions", len(live)).Msg("field list applied")
}

// ApplySettings changes the settings of sessions created from now on.
func (s *SessionService) ApplySettings(settings SessionSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *SessionService) liveLocked() []*Session {
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

func (s *SessionService) reportCount(n int) {
	if s.hooks.Sessions != nil {
		s.hooks.Sessions(n)
	}
}

// DefaultLocale returns the locale new sessions start in.
func (s *SessionService) DefaultLocale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Locale
}
