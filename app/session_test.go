package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artpar/searchtable/adapters/idgen"
	"github.com/artpar/searchtable/app"
	"github.com/artpar/searchtable/core/events"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/locale"
	"github.com/artpar/searchtable/core/selection"
	"github.com/artpar/searchtable/core/storage"
	"github.com/artpar/searchtable/core/table"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func sessionFields() []field.Descriptor {
	return []field.Descriptor{
		{Key: "id", Title: "ID", Table: field.On[field.TableOverride]()},
		{Key: "name", Title: "Name", Search: field.On[field.SearchOverride](), Sort: true, DefaultSortsValue: field.Ascend},
		{Key: "status", Title: "Status", Search: field.With(field.SearchOverride{Position: field.PositionMore})},
	}
}

func sessionRows() []selection.Record {
	return []selection.Record{
		{"id": "1", "name": "carol", "status": "open"},
		{"id": "2", "name": "alice", "status": "closed"},
		{"id": "3", "name": "bob", "status": "open"},
	}
}

type countHook struct {
	mu sync.Mutex
	n  []int
}

func (h *countHook) record(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.n = append(h.n, n)
}

func newService(t *testing.T, settings app.SessionSettings, bus events.Publisher, hooks app.Hooks) *app.SessionService {
	t.Helper()
	loader := storage.NewMemoryLoader(sessionRows(), nil, "id")
	catalog := locale.NewCatalog(map[string]map[string]string{
		"de": {"Name": "Name", "Status": "Zustand"},
	})
	return app.NewSessionService(loader, sessionFields(), settings, catalog, bus, hooks, zerolog.Nop())
}

func TestSessionCreateAutoload(t *testing.T) {
	hook := &countHook{}
	svc := newService(t, app.SessionSettings{
		RowKey:   "id",
		PageSize: 2,
		Locale:   "en",
		Autoload: true,
	}, nil, app.Hooks{Sessions: hook.record})

	sess := svc.Create(context.Background(), "")
	sess.Table.Wait()

	view := sess.View()
	if view.Table.State != table.StateReady {
		t.Fatalf("state = %s, want ready", view.Table.State)
	}
	if view.Table.Total != 3 {
		t.Errorf("total = %d, want 3", view.Table.Total)
	}
	var names []any
	for _, r := range view.Table.Rows {
		names = append(names, r["name"])
	}
	if diff := cmp.Diff([]any{"alice", "bob"}, names); diff != "" {
		t.Errorf("first page (-want +got):\n%s", diff)
	}
	if view.Locale != "en" {
		t.Errorf("locale = %q, want en", view.Locale)
	}
	if diff := cmp.Diff([]int{1}, hook.n); diff != "" {
		t.Errorf("session counts (-want +got):\n%s", diff)
	}
}

func TestSessionCreateWithoutAutoloadStaysIdle(t *testing.T) {
	svc := newService(t, app.SessionSettings{RowKey: "id"}, nil, app.Hooks{})
	sess := svc.Create(context.Background(), "de")
	if got := sess.Table.State(); got != table.StateIdle {
		t.Errorf("state = %s, want idle", got)
	}
	if got := sess.View().Layout.Search.More[0].Title; got != "Zustand" {
		t.Errorf("localized title = %q, want Zustand", got)
	}
}

func TestSessionGetClose(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	var names []string
	bus.Subscribe("session.*", func(_ context.Context, e events.Event) error {
		names = append(names, e.Name)
		return nil
	})
	hook := &countHook{}
	svc := newService(t, app.SessionSettings{RowKey: "id"}, bus, app.Hooks{Sessions: hook.record})
	ctx := context.Background()

	a := svc.Create(ctx, "")
	b := svc.Create(ctx, "")
	if a.ID == b.ID {
		t.Fatal("session ids collide")
	}
	if svc.Len() != 2 {
		t.Fatalf("Len = %d, want 2", svc.Len())
	}

	got, err := svc.Get(a.ID)
	if err != nil || got != a {
		t.Fatalf("Get(%s) = %v, %v", a.ID, got, err)
	}

	if err := svc.Close(ctx, a.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := svc.Get(a.ID); !errors.Is(err, app.ErrSessionNotFound) {
		t.Errorf("Get after close err = %v, want ErrSessionNotFound", err)
	}
	if err := svc.Close(ctx, a.ID); !errors.Is(err, app.ErrSessionNotFound) {
		t.Errorf("second Close err = %v, want ErrSessionNotFound", err)
	}
	if diff := cmp.Diff([]string{b.ID}, svc.IDs()); diff != "" {
		t.Errorf("IDs (-want +got):\n%s", diff)
	}

	want := []string{events.SessionCreated, events.SessionCreated, events.SessionClosed}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 1}, hook.n); diff != "" {
		t.Errorf("session counts (-want +got):\n%s", diff)
	}
}

func TestApplyFieldsUpdatesLiveSessions(t *testing.T) {
	svc := newService(t, app.SessionSettings{RowKey: "id"}, nil, app.Hooks{})
	ctx := context.Background()
	sess := svc.Create(ctx, "")
	sess.Primary.SetFieldsValue(map[string]any{"name": "bob"})

	next := append(sessionFields(), field.Descriptor{
		Key: "owner", Title: "Owner", Search: field.On[field.SearchOverride](),
	})
	svc.ApplyFields(ctx, next)

	if got := len(svc.Fields()); got != 4 {
		t.Errorf("service fields = %d, want 4", got)
	}
	keys := []string{}
	for _, f := range sess.Primary.Fields() {
		keys = append(keys, f.Key)
	}
	if diff := cmp.Diff([]string{"name", "owner"}, keys); diff != "" {
		t.Errorf("panel fields (-want +got):\n%s", diff)
	}
	if got := sess.Primary.FieldsValue()["name"]; got != "bob" {
		t.Errorf("surviving value = %v, want bob", got)
	}

	later := svc.Create(ctx, "")
	if got := len(later.Shell.Layout().Search.Primary); got != 2 {
		t.Errorf("new session primary fields = %d, want 2", got)
	}
}

func TestApplySettingsAffectsNewSessions(t *testing.T) {
	svc := newService(t, app.SessionSettings{RowKey: "id", PageSize: 2}, nil, app.Hooks{})
	ctx := context.Background()
	old := svc.Create(ctx, "")

	svc.ApplySettings(app.SessionSettings{RowKey: "id", PageSize: 25, Locale: "de"})
	fresh := svc.Create(ctx, "")

	if got := old.Table.APIParams().Pagination.PageSize; got != 2 {
		t.Errorf("old page size = %d, want 2", got)
	}
	if got := fresh.Table.APIParams().Pagination.PageSize; got != 25 {
		t.Errorf("new page size = %d, want 25", got)
	}
	if got := fresh.Shell.Locale(); got != "de" {
		t.Errorf("new locale = %q, want de", got)
	}
}

func TestServiceLayout(t *testing.T) {
	svc := newService(t, app.SessionSettings{RowKey: "id", Locale: "de"}, nil, app.Hooks{})
	layout, diags := svc.Layout("")
	if len(diags) != 0 {
		t.Errorf("diagnostics = %v", diags)
	}
	if got := layout.Search.More[0].Title; got != "Zustand" {
		t.Errorf("title = %q, want Zustand", got)
	}
	if got := len(layout.Table.Fields); got != 3 {
		t.Errorf("table fields = %d, want 3", got)
	}
}

func TestSessionIDGenerator(t *testing.T) {
	svc := app.NewSessionService(nil, sessionFields(), app.SessionSettings{RowKey: "id"},
		nil, nil, app.Hooks{}, zerolog.Nop(), app.WithIDGenerator(idgen.NewSequential("s")))

	a := svc.Create(context.Background(), "")
	b := svc.Create(context.Background(), "")
	if a.ID != "s1" || b.ID != "s2" {
		t.Errorf("ids = %q, %q, want s1, s2", a.ID, b.ID)
	}
	if diff := cmp.Diff([]string{"s1", "s2"}, svc.IDs()); diff != "" {
		t.Errorf("IDs (-want +got):\n%s", diff)
	}
}

func TestSessionCloseCancelsInFlightLoad(t *testing.T) {
	started := make(chan struct{}, 1)
	loader := table.LoaderFunc(func(ctx context.Context, _ table.LoadParams) (table.LoadResult, error) {
		started <- struct{}{}
		<-ctx.Done()
		return table.LoadResult{}, ctx.Err()
	})
	svc := app.NewSessionService(loader, sessionFields(), app.SessionSettings{RowKey: "id", Autoload: true},
		locale.NewCatalog(nil), nil, app.Hooks{}, zerolog.Nop())

	ctx := context.Background()
	sess := svc.Create(ctx, "")
	<-started

	if err := svc.Close(ctx, sess.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sess.Table.WaitContext(waitCtx); err != nil {
		t.Fatalf("load still running after Close: %v", err)
	}
	if v := sess.Table.View(); v.State != table.StateError {
		t.Errorf("State = %s, want error", v.State)
	}
}
