// Package shell coordinates one search table: it derives the surface
// schemas from the field list, owns the selection, the pending edit rows and
// the dialog state, and forwards handle calls to the table, search panel and
// form collaborators once they are attached.
//
// A handle call whose collaborator is not attached yet does nothing.
package shell

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/events"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
	"github.com/artpar/searchtable/core/selection"
	"github.com/artpar/searchtable/core/table"
	"github.com/rs/zerolog"
)

// DialogMode says what the dialog was opened for.
type DialogMode string

const (
	DialogCreate DialogMode = "create"
	DialogEdit   DialogMode = "edit"
)

// DialogState is the visibility and content of the dialog.
type DialogState struct {
	Open   bool             `json:"open"`
	Mode   DialogMode       `json:"mode,omitempty"`
	Record selection.Record `json:"record,omitempty"`
	Values map[string]any   `json:"values,omitempty"`
}

// Options configures a Shell.
type Options struct {
	// Session tags published events.
	Session string

	RowKey        string
	SelectionMode selection.Mode

	// SelectShowKey is the record attribute listed in selection summaries.
	SelectShowKey string

	Translator schema.Translator
	Locale     string

	Logger zerolog.Logger
	Bus    events.Publisher

	// OnSelectionChange receives the full selection after every change.
	OnSelectionChange selection.ChangeFunc

	// OnDerive is called after every schema derivation.
	OnDerive func(layout schema.Layout, diags []field.Diagnostic)
}

// Shell implements Handle.
type Shell struct {
	opts   Options
	logger zerolog.Logger
	bus    events.Publisher
	sel    *selection.Coordinator

	mu        sync.RWMutex
	fields    []field.Descriptor
	layout    schema.Layout
	localized schema.Layout
	diags     []field.Diagnostic
	locale    string

	table    TableRef
	primary  SearchRef
	more     SearchRef
	form     FormRef
	editRows []selection.Record
	dialog   DialogState
}

var _ Handle = (*Shell)(nil)

// New creates a shell for fields. extra are field lists declared by child
// components and are appended after fields.
func New(opts Options, fields []field.Descriptor, extra ...[]field.Descriptor) *Shell {
	s := &Shell{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "shell").Str("session", opts.Session).Logger(),
		bus:    opts.Bus,
		locale: opts.Locale,
	}
	if s.bus == nil {
		s.bus = events.Nop{}
	}
	s.sel = selection.New(opts.RowKey, opts.SelectionMode, s.selectionChanged)

	s.mu.Lock()
	s.deriveLocked(fields, extra)
	s.mu.Unlock()
	return s
}

// AttachTable attaches the table collaborator.
func (s *Shell) AttachTable(t TableRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
}

// AttachSearch attaches the primary and overflow search panels. Panels that
// accept field lists receive the current localized search fields.
func (s *Shell) AttachSearch(primary, more SearchRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary = primary
	s.more = more
	s.pushSearchLocked()
}

// AttachForm attaches the dialog form.
func (s *Shell) AttachForm(f FormRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = f
}

// Detach drops every collaborator reference.
func (s *Shell) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = nil
	s.primary = nil
	s.more = nil
	s.form = nil
}

// SetFields re-derives every schema from a new field list.
func (s *Shell) SetFields(ctx context.Context, fields []field.Descriptor, extra ...[]field.Descriptor) {
	s.mu.Lock()
	s.deriveLocked(fields, extra)
	s.pushSearchLocked()
	n := len(s.diags)
	s.mu.Unlock()

	s.bus.Publish(ctx, events.Event{
		Name:    events.FieldsChanged,
		Session: s.opts.Session,
		Data:    map[string]any{"diagnostics": n},
	})
}

// SetLocale re-translates titles. Partitioning does not depend on the locale
// and is left untouched.
func (s *Shell) SetLocale(ctx context.Context, locale string) {
	s.mu.Lock()
	s.locale = locale
	s.localized = schema.Localize(s.layout, s.opts.Translator, locale)
	s.pushSearchLocked()
	s.mu.Unlock()

	s.bus.Publish(ctx, events.Event{
		Name:    events.LocaleChanged,
		Session: s.opts.Session,
		Data:    map[string]any{"locale": locale},
	})
}

// Locale returns the current locale.
func (s *Shell) Locale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

// Layout returns the localized schemas.
func (s *Shell) Layout() schema.Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localized
}

// Diagnostics returns the configuration problems of the current field list.
func (s *Shell) Diagnostics() []field.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.diags)
}

// Defaults returns the filters and sorts derived from the table schema.
func (s *Shell) Defaults() (defaults.FilterState, []defaults.SortItem) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return defaults.Filters(s.layout.Table), defaults.Sorts(s.layout.Table)
}

// SearchDefaults returns the default values of every search input.
func (s *Shell) SearchDefaults() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return defaults.SearchValues(s.layout.Search.All())
}

// Refresh reloads the table with unchanged parameters.
func (s *Shell) Refresh(ctx context.Context) {
	t := s.tableRef()
	if t == nil {
		return
	}
	seq := t.Refresh(ctx)
	s.bus.Publish(ctx, events.Event{
		Name:    events.TableRefreshed,
		Session: s.opts.Session,
		Data:    map[string]any{"seq": seq},
	})
}

// Reset combines the values of both search panels, overflow values winning,
// and reloads the table from the first page.
func (s *Shell) Reset(ctx context.Context) {
	s.mu.RLock()
	t, primary, more := s.table, s.primary, s.more
	s.mu.RUnlock()
	if t == nil {
		return
	}

	params := map[string]any{}
	if primary != nil {
		maps.Copy(params, primary.FieldsValue())
	}
	if more != nil {
		maps.Copy(params, more.FieldsValue())
	}

	seq := t.Reset(ctx, params)
	s.bus.Publish(ctx, events.Event{
		Name:    events.TableReset,
		Session: s.opts.Session,
		Data:    map[string]any{"seq": seq, "params": params},
	})
}

// ClearSelection empties the selection.
func (s *Shell) ClearSelection() { s.sel.Clear() }

// GetSelection returns the selected keys and records.
func (s *Shell) GetSelection() selection.Snapshot { return s.sel.Snapshot() }

// SetSelection replaces the selection with records.
func (s *Shell) SetSelection(records ...selection.Record) { s.sel.Replace(records...) }

// AddSelection adds records to the selection.
func (s *Shell) AddSelection(records ...selection.Record) { s.sel.Add(records...) }

// RemoveSelection removes keys from the selection.
func (s *Shell) RemoveSelection(keys ...string) { s.sel.Remove(keys...) }

// SelectionSummary describes the selection using the configured display key.
func (s *Shell) SelectionSummary() string {
	return s.sel.Snapshot().Summary(s.opts.SelectShowKey)
}

// GetSearchRef returns the primary search panel, or nil.
func (s *Shell) GetSearchRef() SearchRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primary
}

// GetMoreSearchRef returns the overflow search panel, or nil.
func (s *Shell) GetMoreSearchRef() SearchRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.more
}

// DoLayout recomputes the table schema and asks the search panels to resize.
func (s *Shell) DoLayout() {
	s.mu.Lock()
	resolved, _ := field.Normalize(s.fields)
	s.layout.Table = schema.Split(resolved).Table
	s.localized = schema.Localize(s.layout, s.opts.Translator, s.locale)
	primary, more := s.primary, s.more
	s.mu.Unlock()

	if primary != nil {
		primary.Resize()
	}
	if more != nil {
		more.Resize()
	}
}

// GetTableData returns the loaded rows.
func (s *Shell) GetTableData() []selection.Record {
	if t := s.tableRef(); t != nil {
		return t.Data()
	}
	return nil
}

// SetTableData replaces the loaded rows.
func (s *Shell) SetTableData(rows []selection.Record) {
	if t := s.tableRef(); t != nil {
		t.SetData(rows)
	}
}

// ClearFilters clears the filters of keys, all of them when keys is empty.
func (s *Shell) ClearFilters(ctx context.Context, keys ...string) {
	if t := s.tableRef(); t != nil {
		t.ClearFilters(ctx, keys...)
	}
}

// SetFiltersValue merges column filters.
func (s *Shell) SetFiltersValue(ctx context.Context, filters map[string]any) {
	if t := s.tableRef(); t != nil {
		t.SetFiltersValue(ctx, filters)
	}
}

// SetSortsValue replaces the sort.
func (s *Shell) SetSortsValue(ctx context.Context, sorts []defaults.SortItem) {
	if t := s.tableRef(); t != nil {
		t.SetSortsValue(ctx, sorts)
	}
}

// ClearSorts clears the sorts of keys, all of them when keys is empty.
func (s *Shell) ClearSorts(ctx context.Context, keys ...string) {
	if t := s.tableRef(); t != nil {
		t.ClearSorts(ctx, keys...)
	}
}

// GetAPIParams returns the parameters of the next load, or the zero value.
func (s *Shell) GetAPIParams() table.LoadParams {
	if t := s.tableRef(); t != nil {
		return t.APIParams()
	}
	return table.LoadParams{}
}

// DeleteRowByKey removes a row from the table and from the selection. It
// reports whether the table held the row.
func (s *Shell) DeleteRowByKey(key string) bool {
	t := s.tableRef()
	if t == nil {
		return false
	}
	removed := t.DeleteRowByKey(key)
	if s.sel.Has(key) {
		s.sel.Remove(key)
	}
	return removed
}

// AddRow inserts a row into the table.
func (s *Shell) AddRow(record selection.Record, pos table.InsertPosition) {
	if t := s.tableRef(); t != nil {
		t.AddRow(record, pos)
	}
}

// SetPaginationValue moves the table to another page.
func (s *Shell) SetPaginationValue(ctx context.Context, p table.Pagination) {
	if t := s.tableRef(); t != nil {
		t.SetPagination(ctx, p)
	}
}

// GetFormRef returns the dialog form, or nil.
func (s *Shell) GetFormRef() FormRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form
}

// SetEditTableRows appends rows to the pending edit list.
func (s *Shell) SetEditTableRows(rows ...selection.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.editRows = append(s.editRows, maps.Clone(r))
	}
}

// GetEditTableRowForm returns the pending edit rows.
func (s *Shell) GetEditTableRowForm() []selection.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]selection.Record, len(s.editRows))
	for i, r := range s.editRows {
		out[i] = maps.Clone(r)
	}
	return out
}

// OpenDialog shows the dialog with the dialog defaults overlaid by record.
func (s *Shell) OpenDialog(mode DialogMode, record selection.Record) DialogState {
	s.mu.Lock()
	values := defaults.FormValues(schema.Search{}, s.layout.Dialog)
	for _, f := range s.layout.Dialog.Fields {
		if v, ok := record[f.Key]; ok {
			values[f.Key] = v
		}
	}
	s.dialog = DialogState{
		Open:   true,
		Mode:   mode,
		Record: maps.Clone(record),
		Values: values,
	}
	if s.form != nil {
		s.form.Reset(values)
	}
	st := s.dialogLocked()
	s.mu.Unlock()
	return st
}

// CloseDialog hides the dialog.
func (s *Shell) CloseDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialog = DialogState{}
}

// Dialog returns the dialog state. Values come from the form when one is
// attached.
func (s *Shell) Dialog() DialogState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dialogLocked()
}

// ValidateDialog returns the keys of required dialog inputs that have no
// value.
func (s *Shell) ValidateDialog() []string {
	st := s.Dialog()
	s.mu.RLock()
	required := s.layout.Dialog.Required()
	s.mu.RUnlock()

	missing := []string{}
	for _, k := range required {
		if defaults.IsEmpty(st.Values[k]) {
			missing = append(missing, k)
		}
	}
	return missing
}

func (s *Shell) dialogLocked() DialogState {
	st := s.dialog
	st.Record = maps.Clone(st.Record)
	if s.form != nil && st.Open {
		st.Values = s.form.Values()
	} else {
		st.Values = maps.Clone(st.Values)
	}
	return st
}

func (s *Shell) tableRef() TableRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

func (s *Shell) deriveLocked(fields []field.Descriptor, extra [][]field.Descriptor) {
	all := slices.Clone(fields)
	for _, e := range extra {
		all = append(all, e...)
	}
	s.fields = all
	s.layout, s.diags = schema.Derive(all)
	s.localized = schema.Localize(s.layout, s.opts.Translator, s.locale)

	for _, d := range s.diags {
		s.logger.Warn().
			Int("index", d.Index).
			Str("key", d.Key).
			Str("surface", d.Surface).
			Msg(d.Message)
	}
	if s.opts.OnDerive != nil {
		s.opts.OnDerive(s.layout, slices.Clone(s.diags))
	}
}

func (s *Shell) pushSearchLocked() {
	if p, ok := s.primary.(fieldSetter); ok {
		p.SetFields(s.localized.Search.Primary)
	}
	if p, ok := s.more.(fieldSetter); ok {
		p.SetFields(s.localized.Search.More)
	}
}

func (s *Shell) selectionChanged(snap selection.Snapshot) {
	if s.opts.OnSelectionChange != nil {
		s.opts.OnSelectionChange(snap)
	}
	s.bus.Publish(context.Background(), events.Event{
		Name:    events.SelectionChanged,
		Session: s.opts.Session,
		Data: map[string]any{
			"keys":    slices.Clone(snap.Keys),
			"summary": snap.Summary(s.opts.SelectShowKey),
		},
	})
}
