package table

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/selection"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// gatedLoader blocks each load until the test releases it.
type gatedLoader struct {
	mu     sync.Mutex
	calls  []LoadParams
	gates  []chan LoadResult
	errs   []chan error
	issued chan int
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{issued: make(chan int, 16)}
}

func (l *gatedLoader) Load(ctx context.Context, p LoadParams) (LoadResult, error) {
	l.mu.Lock()
	gate := make(chan LoadResult, 1)
	errc := make(chan error, 1)
	l.calls = append(l.calls, p)
	l.gates = append(l.gates, gate)
	l.errs = append(l.errs, errc)
	n := len(l.calls) - 1
	l.mu.Unlock()
	l.issued <- n

	select {
	case res := <-gate:
		return res, nil
	case err := <-errc:
		return LoadResult{}, err
	}
}

func (l *gatedLoader) waitIssued(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-l.issued:
		case <-time.After(2 * time.Second):
			t.Fatalf("load %d was never issued", i)
		}
	}
}

func (l *gatedLoader) resolve(i int, res LoadResult) {
	l.mu.Lock()
	gate := l.gates[i]
	l.mu.Unlock()
	gate <- res
}

func (l *gatedLoader) fail(i int, err error) {
	l.mu.Lock()
	errc := l.errs[i]
	l.mu.Unlock()
	errc <- err
}

func (l *gatedLoader) params(i int) LoadParams {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[i]
}

type countingObserver struct {
	mu      sync.Mutex
	started int
	ok      int
	failed  int
	stale   int
}

func (o *countingObserver) LoadStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *countingObserver) LoadFinished(err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case err == nil:
		o.ok++
	case errors.Is(err, ErrStale):
		o.stale++
	default:
		o.failed++
	}
}

func rows(ids ...string) []selection.Record {
	out := make([]selection.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, selection.Record{"id": id})
	}
	return out
}

func ids(rs []selection.Record) []string {
	out := []string{}
	for _, r := range rs {
		out = append(out, r["id"].(string))
	}
	return out
}

func TestStaleResponseDiscarded(t *testing.T) {
	loader := newGatedLoader()
	obs := &countingObserver{}
	tbl := New(loader, Options{RowKey: "id", Logger: zerolog.Nop(), Observer: obs})
	ctx := context.Background()

	first := tbl.Reset(ctx, map[string]any{"q": "one"})
	loader.waitIssued(t, 1)
	second := tbl.Reset(ctx, map[string]any{"q": "two"})
	loader.waitIssued(t, 1)
	if second <= first {
		t.Fatalf("sequence did not increase: %d then %d", first, second)
	}

	loader.resolve(1, LoadResult{Rows: rows("b1", "b2"), Total: 2})
	loader.resolve(0, LoadResult{Rows: rows("a1"), Total: 1})
	tbl.Wait()

	v := tbl.View()
	if diff := cmp.Diff([]string{"b1", "b2"}, ids(v.Rows)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if v.Total != 2 || v.State != StateReady {
		t.Errorf("Total/State = %d/%s, want 2/ready", v.Total, v.State)
	}
	if obs.stale != 1 || obs.ok != 1 || obs.started != 2 {
		t.Errorf("observer = %+v, want 2 started, 1 ok, 1 stale", obs)
	}
}

func TestStaleErrorDoesNotOverrideNewerResult(t *testing.T) {
	loader := newGatedLoader()
	tbl := New(loader, Options{RowKey: "id", Logger: zerolog.Nop()})
	ctx := context.Background()

	tbl.Refresh(ctx)
	loader.waitIssued(t, 1)
	tbl.Refresh(ctx)
	loader.waitIssued(t, 1)

	loader.resolve(1, LoadResult{Rows: rows("x"), Total: 1})
	loader.fail(0, errors.New("boom"))
	tbl.Wait()

	if tbl.State() != StateReady {
		t.Errorf("State = %s, want ready", tbl.State())
	}
}

func TestLoadErrorSetsErrorState(t *testing.T) {
	loader := newGatedLoader()
	obs := &countingObserver{}
	tbl := New(loader, Options{Logger: zerolog.Nop(), Observer: obs})

	tbl.Refresh(context.Background())
	loader.waitIssued(t, 1)
	if tbl.State() != StateLoading {
		t.Errorf("State = %s while in flight, want loading", tbl.State())
	}
	loader.fail(0, errors.New("upstream down"))
	tbl.Wait()

	v := tbl.View()
	if v.State != StateError || v.Error != "upstream down" {
		t.Errorf("View = %+v, want error state", v)
	}
	if obs.failed != 1 || obs.started != 1 {
		t.Errorf("observer = %+v, want exactly one failed load and no retry", obs)
	}
}

func TestResetGoesToFirstPageRefreshDoesNot(t *testing.T) {
	loader := newGatedLoader()
	tbl := New(loader, Options{PageSize: 20, Logger: zerolog.Nop()})
	ctx := context.Background()

	tbl.SetPagination(ctx, Pagination{Current: 3})
	loader.waitIssued(t, 1)
	tbl.Refresh(ctx)
	loader.waitIssued(t, 1)
	tbl.Reset(ctx, map[string]any{"q": "x"})
	loader.waitIssued(t, 1)
	for i := 0; i < 3; i++ {
		loader.resolve(i, LoadResult{})
	}
	tbl.Wait()

	if got := loader.params(1).Pagination; got != (Pagination{Current: 3, PageSize: 20}) {
		t.Errorf("refresh pagination = %+v, want page 3", got)
	}
	if got := loader.params(2).Pagination.Current; got != 1 {
		t.Errorf("reset page = %d, want 1", got)
	}
	if got := loader.params(2).Search["q"]; got != "x" {
		t.Errorf("reset search = %v", loader.params(2).Search)
	}
}

func TestFilterAndSortMutatorsLoadOnce(t *testing.T) {
	loader := newGatedLoader()
	tbl := New(loader, Options{
		Logger:         zerolog.Nop(),
		DefaultFilters: defaults.FilterState{"status": "open", "region": "eu"},
		DefaultSorts:   []defaults.SortItem{{Key: "a", Order: field.Ascend}, {Key: "b", Order: field.Descend}},
	})
	ctx := context.Background()

	steps := []func(){
		func() { tbl.SetFiltersValue(ctx, map[string]any{"owner": "me", "region": ""}) },
		func() { tbl.ClearFilters(ctx, "status") },
		func() {
			tbl.SetSortsValue(ctx, []defaults.SortItem{{Key: "c", Order: field.Ascend}, {Key: "c", Order: field.Descend}, {Key: "d", Order: field.Descend}})
		},
		func() { tbl.ClearSorts(ctx, "c") },
		func() { tbl.ClearFilters(ctx) },
		func() { tbl.ClearSorts(ctx) },
	}
	for _, step := range steps {
		step()
		loader.waitIssued(t, 1)
	}
	for i := range steps {
		loader.resolve(i, LoadResult{})
	}
	tbl.Wait()

	loader.mu.Lock()
	n := len(loader.calls)
	loader.mu.Unlock()
	if n != len(steps) {
		t.Fatalf("loads = %d, want one per mutator call (6)", n)
	}

	checks := []struct {
		name    string
		filters defaults.FilterState
		sorts   []defaults.SortItem
	}{
		{"set filters", defaults.FilterState{"status": "open", "owner": "me"}, []defaults.SortItem{{Key: "a", Order: field.Ascend}, {Key: "b", Order: field.Descend}}},
		{"clear one filter", defaults.FilterState{"owner": "me"}, []defaults.SortItem{{Key: "a", Order: field.Ascend}, {Key: "b", Order: field.Descend}}},
		{"set sorts", defaults.FilterState{"owner": "me"}, []defaults.SortItem{{Key: "c", Order: field.Ascend}, {Key: "d", Order: field.Descend}}},
		{"clear one sort", defaults.FilterState{"owner": "me"}, []defaults.SortItem{{Key: "d", Order: field.Descend}}},
		{"clear all filters", defaults.FilterState{}, []defaults.SortItem{{Key: "d", Order: field.Descend}}},
		{"clear all sorts", defaults.FilterState{}, []defaults.SortItem{}},
	}
	for i, c := range checks {
		p := loader.params(i)
		if diff := cmp.Diff(c.filters, p.Filters); diff != "" {
			t.Errorf("%s filters (-want +got):\n%s", c.name, diff)
		}
		if diff := cmp.Diff(c.sorts, p.Sorts); diff != "" {
			t.Errorf("%s sorts (-want +got):\n%s", c.name, diff)
		}
	}
}

func TestAPIParamsHooks(t *testing.T) {
	tbl := New(nil, Options{
		DefaultSearch: map[string]any{"q": "a"},
		ExtendParams:  map[string]any{"tenant": "t1"},
		BeforeSearch: func(p LoadParams) LoadParams {
			p.Search["stamped"] = true
			return p
		},
	})

	p := tbl.APIParams()
	want := map[string]any{"q": "a", "tenant": "t1", "stamped": true}
	if diff := cmp.Diff(want, p.Search); diff != "" {
		t.Errorf("Search (-want +got):\n%s", diff)
	}
	if p.Pagination != (Pagination{Current: 1, PageSize: DefaultPageSize}) {
		t.Errorf("Pagination = %+v", p.Pagination)
	}
}

func TestStaticTableRows(t *testing.T) {
	var seen []LoadParams
	tbl := New(nil, Options{RowKey: "id", OnParamsChange: func(p LoadParams) { seen = append(seen, p) }})

	tbl.SetData(rows("1", "2"))
	tbl.AddRow(selection.Record{"id": "0"}, Before)
	tbl.AddRow(selection.Record{"id": "3"}, After)
	if diff := cmp.Diff([]string{"0", "1", "2", "3"}, ids(tbl.Data())); diff != "" {
		t.Errorf("rows after add (-want +got):\n%s", diff)
	}

	if !tbl.DeleteRowByKey("1") {
		t.Error("DeleteRowByKey(1) = false")
	}
	if tbl.DeleteRowByKey("missing") {
		t.Error("DeleteRowByKey(missing) = true")
	}
	v := tbl.View()
	if diff := cmp.Diff([]string{"0", "2", "3"}, ids(v.Rows)); diff != "" {
		t.Errorf("rows after delete (-want +got):\n%s", diff)
	}
	if v.Total != 3 || v.State != StateReady {
		t.Errorf("Total/State = %d/%s", v.Total, v.State)
	}

	tbl.Refresh(context.Background())
	tbl.Wait()
	if len(seen) != 1 {
		t.Errorf("OnParamsChange calls = %d, want 1", len(seen))
	}
	if len(tbl.Data()) != 3 {
		t.Error("refresh without a loader must keep static rows")
	}
}

func TestOnLoadCallback(t *testing.T) {
	done := make(chan LoadResult, 1)
	tbl := New(LoaderFunc(func(ctx context.Context, p LoadParams) (LoadResult, error) {
		return LoadResult{Rows: rows("r"), Total: 1}, nil
	}), Options{OnLoad: func(r LoadResult) { done <- r }})

	tbl.Refresh(context.Background())
	tbl.Wait()
	select {
	case r := <-done:
		if r.Total != 1 {
			t.Errorf("OnLoad total = %d", r.Total)
		}
	default:
		t.Error("OnLoad not called")
	}
}

func TestLoadSurvivesCanceledCaller(t *testing.T) {
	tbl := New(LoaderFunc(func(ctx context.Context, p LoadParams) (LoadResult, error) {
		if err := ctx.Err(); err != nil {
			return LoadResult{}, err
		}
		return LoadResult{Rows: rows("ok"), Total: 1}, nil
	}), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tbl.Refresh(ctx)
	tbl.Wait()

	if tbl.State() != StateReady {
		t.Errorf("State = %s, want ready", tbl.State())
	}
}

func TestLoaderPanicBecomesErrorState(t *testing.T) {
	obs := &countingObserver{}
	tbl := New(LoaderFunc(func(context.Context, LoadParams) (LoadResult, error) {
		panic("loader blew up")
	}), Options{Logger: zerolog.Nop(), Observer: obs})

	tbl.Reset(context.Background(), nil)
	tbl.Wait()

	v := tbl.View()
	if v.State != StateError {
		t.Errorf("State = %s, want error", v.State)
	}
	if v.Error != "loader panicked: loader blew up" {
		t.Errorf("Error = %q", v.Error)
	}
	if obs.failed != 1 {
		t.Errorf("observer = %+v, want one failed load", obs)
	}

	// The table keeps working after a panic.
	tbl.Refresh(context.Background())
	tbl.Wait()
	if obs.started != 2 {
		t.Errorf("started = %d, want 2", obs.started)
	}
}

func TestConcurrentRefreshAndWait(t *testing.T) {
	tbl := New(LoaderFunc(func(context.Context, LoadParams) (LoadResult, error) {
		return LoadResult{Rows: rows("a"), Total: 1}, nil
	}), Options{Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				tbl.Refresh(context.Background())
				tbl.Wait()
			}
		}()
	}
	wg.Wait()
	tbl.Wait()

	v := tbl.View()
	if v.State != StateReady || v.Seq != 8*500 {
		t.Errorf("View = state %s seq %d, want ready after %d loads", v.State, v.Seq, 8*500)
	}
}

func TestCloseCancelsInFlightLoads(t *testing.T) {
	started := make(chan struct{})
	tbl := New(LoaderFunc(func(ctx context.Context, _ LoadParams) (LoadResult, error) {
		close(started)
		<-ctx.Done()
		return LoadResult{}, ctx.Err()
	}), Options{Logger: zerolog.Nop()})

	tbl.Refresh(context.Background())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tbl.WaitContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitContext = %v, want deadline exceeded while the load hangs", err)
	}

	tbl.Close()
	ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tbl.WaitContext(ctx); err != nil {
		t.Fatalf("WaitContext after Close = %v", err)
	}
	if v := tbl.View(); v.State != StateError || v.Error != context.Canceled.Error() {
		t.Errorf("View = %+v, want canceled error state", v)
	}
}

func TestPaginationOffset(t *testing.T) {
	tests := []struct {
		p    Pagination
		want int
	}{
		{Pagination{Current: 1, PageSize: 10}, 0},
		{Pagination{Current: 3, PageSize: 10}, 20},
		{Pagination{Current: 0, PageSize: 10}, 0},
		{Pagination{Current: -5, PageSize: 10}, 0},
		{Pagination{Current: 4, PageSize: 0}, 0},
		{Pagination{Current: (1 << 60) + 1, PageSize: 8}, math.MaxInt},
		{Pagination{Current: math.MaxInt, PageSize: math.MaxInt}, math.MaxInt},
	}
	for _, tt := range tests {
		if got := tt.p.Offset(); got != tt.want {
			t.Errorf("%+v.Offset() = %d, want %d", tt.p, got, tt.want)
		}
	}
}
