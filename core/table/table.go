// Package table drives a data table: it owns the loaded rows, the column
// filters and sorts, pagination, and the loading state, and calls a Loader
// for data.
//
// Loads are asynchronous. Each one is tagged with a sequence number when it
// is issued, and a result is applied only if no newer load has been issued
// since; older results are discarded.
package table

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/selection"
	"github.com/rs/zerolog"
)

// DefaultPageSize is used when Options.PageSize is not positive.
const DefaultPageSize = 10

// ErrStale is passed to Observer.LoadFinished for discarded results.
var ErrStale = errors.New("superseded by a newer load")

// ErrLoaderPanic wraps a panic raised by a Loader.
var ErrLoaderPanic = errors.New("loader panicked")

// Pagination is the requested page.
type Pagination struct {
	Current  int `json:"current"`
	PageSize int `json:"pageSize"`
}

// Offset returns the index of the first row of the page. Pages before the
// first count as the first; offsets beyond math.MaxInt saturate.
func (p Pagination) Offset() int {
	if p.PageSize <= 0 {
		return 0
	}
	page := max(p.Current, 1) - 1
	if page > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return page * p.PageSize
}

// LoadParams is everything a Loader needs to produce one page.
type LoadParams struct {
	Filters    defaults.FilterState `json:"filters"`
	Sorts      []defaults.SortItem  `json:"sorts"`
	Search     map[string]any       `json:"search"`
	Pagination Pagination           `json:"pagination"`
}

// LoadResult is one page of rows and the total row count.
type LoadResult struct {
	Rows  []selection.Record `json:"rows"`
	Total int                `json:"total"`
}

// Loader fetches rows. It is the data-loading collaborator; the table never
// retries a failed load.
type Loader interface {
	Load(ctx context.Context, params LoadParams) (LoadResult, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, params LoadParams) (LoadResult, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, params LoadParams) (LoadResult, error) {
	return f(ctx, params)
}

// State is the loading state rendered by the front end.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// InsertPosition places an added row.
type InsertPosition string

const (
	Before InsertPosition = "before"
	After  InsertPosition = "after"
)

// Observer receives load telemetry.
type Observer interface {
	LoadStarted()
	// LoadFinished is called once per load with nil, the loader error, or ErrStale.
	LoadFinished(err error, elapsed time.Duration)
}

// Options configures a Table.
type Options struct {
	RowKey         string
	PageSize       int
	DefaultFilters defaults.FilterState
	DefaultSorts   []defaults.SortItem
	DefaultSearch  map[string]any

	// ExtendParams are merged over the search parameters of every load.
	ExtendParams map[string]any

	// BeforeSearch may rewrite the parameters of every load.
	BeforeSearch func(LoadParams) LoadParams

	// OnLoad is called after a load result has been applied.
	OnLoad func(LoadResult)

	// OnParamsChange is called whenever a load is issued.
	OnParamsChange func(LoadParams)

	Logger   zerolog.Logger
	Observer Observer
}

// View is a copy of the table state.
type View struct {
	Rows   []selection.Record `json:"rows"`
	Total  int                `json:"total"`
	State  State              `json:"state"`
	Error  string             `json:"error,omitempty"`
	Params LoadParams         `json:"params"`
	Seq    uint64             `json:"seq"`
}

// Table is the table collaborator.
type Table struct {
	mu     sync.Mutex
	loader Loader
	opts   Options
	logger zerolog.Logger

	rows       []selection.Record
	total      int
	state      State
	err        error
	filters    defaults.FilterState
	sorts      []defaults.SortItem
	search     map[string]any
	pagination Pagination

	seq      uint64
	inflight int
	idle     chan struct{} // closed when inflight drops to zero

	base   context.Context
	cancel context.CancelFunc
}

// New creates a table. A nil loader makes a static table whose rows are set
// with SetData.
func New(loader Loader, opts Options) *Table {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	base, cancel := context.WithCancel(context.Background())
	t := &Table{
		base:       base,
		cancel:     cancel,
		loader:     loader,
		opts:       opts,
		logger:     opts.Logger.With().Str("component", "table").Logger(),
		state:      StateIdle,
		filters:    cloneMap(opts.DefaultFilters),
		sorts:      slices.Clone(opts.DefaultSorts),
		search:     cloneMap(opts.DefaultSearch),
		pagination: Pagination{Current: 1, PageSize: opts.PageSize},
	}
	if t.sorts == nil {
		t.sorts = []defaults.SortItem{}
	}
	return t
}

// Reset replaces the search parameters and loads the first page.
func (t *Table) Reset(ctx context.Context, search map[string]any) uint64 {
	t.mu.Lock()
	t.search = cloneMap(search)
	t.pagination.Current = 1
	return t.issueLocked(ctx)
}

// Refresh reloads with unchanged parameters, on the current page.
func (t *Table) Refresh(ctx context.Context) uint64 {
	t.mu.Lock()
	return t.issueLocked(ctx)
}

// SetFiltersValue merges filters into the column filters and loads once.
func (t *Table) SetFiltersValue(ctx context.Context, filters map[string]any) uint64 {
	t.mu.Lock()
	for k, v := range filters {
		if defaults.IsEmpty(v) {
			delete(t.filters, k)
			continue
		}
		t.filters[k] = v
	}
	t.pagination.Current = 1
	return t.issueLocked(ctx)
}

// ClearFilters removes the filters of keys, or every filter when keys is
// empty, and loads once.
func (t *Table) ClearFilters(ctx context.Context, keys ...string) uint64 {
	t.mu.Lock()
	if len(keys) == 0 {
		t.filters = defaults.FilterState{}
	} else {
		for _, k := range keys {
			delete(t.filters, k)
		}
	}
	t.pagination.Current = 1
	return t.issueLocked(ctx)
}

// SetSortsValue replaces the sort and loads once.
func (t *Table) SetSortsValue(ctx context.Context, sorts []defaults.SortItem) uint64 {
	t.mu.Lock()
	t.sorts = dedupeSorts(sorts)
	t.pagination.Current = 1
	return t.issueLocked(ctx)
}

// ClearSorts removes the sorts of keys, or every sort when keys is empty,
// and loads once.
func (t *Table) ClearSorts(ctx context.Context, keys ...string) uint64 {
	t.mu.Lock()
	if len(keys) == 0 {
		t.sorts = []defaults.SortItem{}
	} else {
		t.sorts = slices.DeleteFunc(t.sorts, func(s defaults.SortItem) bool {
			return slices.Contains(keys, s.Key)
		})
	}
	t.pagination.Current = 1
	return t.issueLocked(ctx)
}

// SetPagination moves to another page and loads it.
func (t *Table) SetPagination(ctx context.Context, p Pagination) uint64 {
	t.mu.Lock()
	if p.Current > 0 {
		t.pagination.Current = p.Current
	}
	if p.PageSize > 0 {
		t.pagination.PageSize = p.PageSize
	}
	return t.issueLocked(ctx)
}

// APIParams returns the parameters the next load would be issued with.
func (t *Table) APIParams() LoadParams {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paramsLocked()
}

// Data returns a copy of the loaded rows.
func (t *Table) Data() []selection.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneRows(t.rows)
}

// SetData replaces the loaded rows without calling the loader.
func (t *Table) SetData(rows []selection.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = cloneRows(rows)
	t.total = len(rows)
	t.state = StateReady
	t.err = nil
}

// AddRow inserts a row before the first or after the last loaded row.
func (t *Table) AddRow(r selection.Record, pos InsertPosition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r = maps.Clone(r)
	if pos == Before {
		t.rows = slices.Insert(t.rows, 0, r)
	} else {
		t.rows = append(t.rows, r)
	}
	t.total++
}

// DeleteRowByKey removes the loaded row with the given key. It reports
// whether a row was removed.
func (t *Table) DeleteRowByKey(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, r := range t.rows {
		if k, ok := selection.KeyOf(r, t.opts.RowKey); ok && k == key {
			t.rows = slices.Delete(t.rows, i, i+1)
			if t.total > 0 {
				t.total--
			}
			return true
		}
	}
	return false
}

// View returns a copy of the table state.
func (t *Table) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := View{
		Rows:   cloneRows(t.rows),
		Total:  t.total,
		State:  t.state,
		Params: t.paramsLocked(),
		Seq:    t.seq,
	}
	if t.err != nil {
		v.Error = t.err.Error()
	}
	return v
}

// State returns the loading state.
func (t *Table) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Wait blocks until every issued load has settled.
func (t *Table) Wait() {
	_ = t.WaitContext(context.Background())
}

// WaitContext blocks until every issued load has settled or ctx is done.
func (t *Table) WaitContext(ctx context.Context) error {
	t.mu.Lock()
	if t.inflight == 0 {
		t.mu.Unlock()
		return nil
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels in-flight loads. Loads issued afterwards fail with
// context.Canceled.
func (t *Table) Close() {
	t.cancel()
}

// issueLocked starts a load with the current parameters. It must be called
// with t.mu held and releases it.
func (t *Table) issueLocked(ctx context.Context) uint64 {
	t.seq++
	seq := t.seq
	params := t.paramsLocked()

	if t.loader == nil {
		t.mu.Unlock()
		if t.opts.OnParamsChange != nil {
			t.opts.OnParamsChange(params)
		}
		return seq
	}

	t.state = StateLoading
	t.err = nil
	if t.inflight == 0 {
		t.idle = make(chan struct{})
	}
	t.inflight++
	t.mu.Unlock()

	if t.opts.OnParamsChange != nil {
		t.opts.OnParamsChange(params)
	}
	if t.opts.Observer != nil {
		t.opts.Observer.LoadStarted()
	}

	// The load outlives the caller's request and keeps only its values. It
	// is cancelled by Close.
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(t.base, cancel)
	go func() {
		defer cancel()
		defer stop()
		t.load(loadCtx, seq, params)
	}()
	return seq
}

func (t *Table) load(ctx context.Context, seq uint64, params LoadParams) {
	defer t.settle()

	start := time.Now()
	res, err := t.call(ctx, params)
	elapsed := time.Since(start)

	t.mu.Lock()
	if seq != t.seq {
		latest := t.seq
		t.mu.Unlock()
		t.logger.Debug().Uint64("seq", seq).Uint64("latest", latest).Msg("discarding stale load")
		t.finished(ErrStale, elapsed)
		return
	}

	if err != nil {
		t.state = StateError
		t.err = err
		t.mu.Unlock()
		t.logger.Warn().Err(err).Uint64("seq", seq).Msg("load failed")
		t.finished(err, elapsed)
		return
	}

	t.rows = cloneRows(res.Rows)
	t.total = res.Total
	t.state = StateReady
	t.mu.Unlock()

	t.logger.Debug().Uint64("seq", seq).Int("rows", len(res.Rows)).Int("total", res.Total).Msg("load applied")
	t.finished(nil, elapsed)
	if t.opts.OnLoad != nil {
		t.opts.OnLoad(res)
	}
}

// call runs the loader, turning a panic into ErrLoaderPanic.
func (t *Table) call(ctx context.Context, params LoadParams) (res LoadResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("loader panicked")
			res, err = LoadResult{}, fmt.Errorf("%w: %v", ErrLoaderPanic, r)
		}
	}()
	return t.loader.Load(ctx, params)
}

func (t *Table) settle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight--
	if t.inflight == 0 {
		close(t.idle)
	}
}

func (t *Table) finished(err error, elapsed time.Duration) {
	if t.opts.Observer != nil {
		t.opts.Observer.LoadFinished(err, elapsed)
	}
}

func (t *Table) paramsLocked() LoadParams {
	search := cloneMap(t.search)
	for k, v := range t.opts.ExtendParams {
		search[k] = v
	}
	p := LoadParams{
		Filters:    cloneMap(t.filters),
		Sorts:      slices.Clone(t.sorts),
		Search:     search,
		Pagination: t.pagination,
	}
	if t.opts.BeforeSearch != nil {
		p = t.opts.BeforeSearch(p)
	}
	return p
}

// dedupeSorts keeps the first occurrence of each key.
func dedupeSorts(sorts []defaults.SortItem) []defaults.SortItem {
	out := make([]defaults.SortItem, 0, len(sorts))
	seen := make(map[string]bool, len(sorts))
	for _, s := range sorts {
		if s.Key == "" || seen[s.Key] {
			continue
		}
		seen[s.Key] = true
		out = append(out, s)
	}
	return out
}

func cloneMap[M ~map[string]any](m M) M {
	out := make(M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneRows(rows []selection.Record) []selection.Record {
	out := make([]selection.Record, len(rows))
	for i, r := range rows {
		out[i] = maps.Clone(r)
	}
	return out
}
