package shell

import (
	"context"

	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/selection"
	"github.com/artpar/searchtable/core/table"
)

// Handle is the operation set a search table exposes to the screen that
// embeds it. Method names and argument shapes are stable.
type Handle interface {
	Refresh(ctx context.Context)
	Reset(ctx context.Context)

	ClearSelection()
	GetSelection() selection.Snapshot
	SetSelection(records ...selection.Record)
	AddSelection(records ...selection.Record)
	RemoveSelection(keys ...string)

	GetSearchRef() SearchRef
	GetMoreSearchRef() SearchRef
	DoLayout()

	GetTableData() []selection.Record
	SetTableData(rows []selection.Record)
	ClearFilters(ctx context.Context, keys ...string)
	SetFiltersValue(ctx context.Context, filters map[string]any)
	SetSortsValue(ctx context.Context, sorts []defaults.SortItem)
	ClearSorts(ctx context.Context, keys ...string)
	GetAPIParams() table.LoadParams
	DeleteRowByKey(key string) bool
	AddRow(record selection.Record, pos table.InsertPosition)
	SetPaginationValue(ctx context.Context, p table.Pagination)

	GetFormRef() FormRef
	GetEditTableRowForm() []selection.Record
}

// TableRef is the table collaborator the shell drives.
type TableRef interface {
	Reset(ctx context.Context, search map[string]any) uint64
	Refresh(ctx context.Context) uint64
	SetFiltersValue(ctx context.Context, filters map[string]any) uint64
	ClearFilters(ctx context.Context, keys ...string) uint64
	SetSortsValue(ctx context.Context, sorts []defaults.SortItem) uint64
	ClearSorts(ctx context.Context, keys ...string) uint64
	SetPagination(ctx context.Context, p table.Pagination) uint64
	APIParams() table.LoadParams
	Data() []selection.Record
	SetData(rows []selection.Record)
	AddRow(r selection.Record, pos table.InsertPosition)
	DeleteRowByKey(key string) bool
}

// SearchRef is a search panel collaborator.
type SearchRef interface {
	FieldsValue() map[string]any
	SetFieldsValue(values map[string]any)
	ResetFields()
	Resize()
}

// fieldSetter is implemented by panels that accept a new field list.
type fieldSetter interface {
	SetFields(fields []field.SearchField)
}

// FormRef is the dialog form collaborator.
type FormRef interface {
	Values() map[string]any
	SetValues(values map[string]any)
	Reset(values map[string]any)
}

var _ TableRef = (*table.Table)(nil)
