package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/selection"
	"github.com/artpar/searchtable/core/table"
	"github.com/google/go-cmp/cmp"
)

func journalRows() []selection.Record {
	return []selection.Record{
		{"id": "1", "title": "Rent March", "status": "open", "amount": 1200},
		{"id": "2", "title": "Coffee", "status": "closed", "amount": 4.5},
		{"id": "3", "title": "Rent April", "status": "open", "amount": 1250},
		{"id": "4", "title": "Books", "status": "held", "amount": 60},
	}
}

// loaderCases run against every loader implementation.
var loaderCases = []struct {
	name      string
	params    table.LoadParams
	wantIDs   []string
	wantTotal int
}{
	{
		name:      "everything by key",
		wantIDs:   []string{"1", "2", "3", "4"},
		wantTotal: 4,
	},
	{
		name: "search is a case-insensitive substring",
		params: table.LoadParams{
			Search: map[string]any{"title": "rent"},
		},
		wantIDs:   []string{"1", "3"},
		wantTotal: 2,
	},
	{
		name: "IN filter and descending sort",
		params: table.LoadParams{
			Filters: defaults.FilterState{"status": []any{"open", "held"}},
			Sorts:   []defaults.SortItem{{Key: "amount", Order: field.Descend}},
		},
		wantIDs:   []string{"3", "1", "4"},
		wantTotal: 3,
	},
	{
		name: "second page",
		params: table.LoadParams{
			Sorts:      []defaults.SortItem{{Key: "amount", Order: field.Ascend}},
			Pagination: table.Pagination{Current: 2, PageSize: 3},
		},
		wantIDs:   []string{"3"},
		wantTotal: 4,
	},
	{
		name: "page far past the end",
		params: table.LoadParams{
			Pagination: table.Pagination{Current: (1 << 60) + 1, PageSize: 8},
		},
		wantIDs:   []string{},
		wantTotal: 4,
	},
	{
		name: "huge page size",
		params: table.LoadParams{
			Pagination: table.Pagination{Current: 1, PageSize: math.MaxInt},
		},
		wantIDs:   []string{"1", "2", "3", "4"},
		wantTotal: 4,
	},
	{
		name: "huge page size second page",
		params: table.LoadParams{
			Pagination: table.Pagination{Current: 2, PageSize: math.MaxInt},
		},
		wantIDs:   []string{},
		wantTotal: 4,
	},
	{
		name: "unknown keys are ignored",
		params: table.LoadParams{
			Filters: defaults.FilterState{"tenant": "acme"},
		},
		wantIDs:   []string{"1", "2", "3", "4"},
		wantTotal: 4,
	},
}

func ids(rows []selection.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = selection.KeyOf(r, "id")
	}
	return out
}

func runLoaderCases(t *testing.T, l table.Loader) {
	t.Helper()
	for _, tt := range loaderCases {
		t.Run(tt.name, func(t *testing.T) {
			res, err := l.Load(context.Background(), tt.params)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(tt.wantIDs, ids(res.Rows)); diff != "" {
				t.Errorf("ids (-want +got):\n%s", diff)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
		})
	}
}

func TestMemoryLoader(t *testing.T) {
	l := NewMemoryLoader(journalRows(), []string{"id", "title", "status", "amount"}, "id")
	runLoaderCases(t, l)
}

func TestMemoryLoaderCanceled(t *testing.T) {
	l := NewMemoryLoader(journalRows(), nil, "id")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Load(ctx, table.LoadParams{}); err == nil {
		t.Error("Load with a canceled context succeeded")
	}
}

func TestSQLiteLoader(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "journals.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	q := journalQuery(t, Question)
	fields := []field.TableField{
		{Key: "id"},
		{Key: "title"},
		{Key: "status"},
		{Key: "amount", Kind: field.KindNumber},
	}
	if err := CreateTable(ctx, db, q, fields); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	n, err := Insert(ctx, db, q, journalRows())
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n != 4 {
		t.Fatalf("inserted %d rows, want 4", n)
	}

	runLoaderCases(t, NewSQLiteLoader(db, q))
}

func TestInsertGeneratesKeys(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	q := journalQuery(t, Question)
	if err := CreateTable(ctx, db, q, nil); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := Insert(ctx, db, q, []selection.Record{{"title": "no key", "extra": "dropped"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	res, err := NewSQLiteLoader(db, q).Load(ctx, table.LoadParams{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(res.Rows))
	}
	if id, ok := selection.KeyOf(res.Rows[0], "id"); !ok || len(id) != 36 {
		t.Errorf("generated id = %q", id)
	}
	if _, ok := res.Rows[0]["extra"]; ok {
		t.Error("non-column attribute was stored")
	}
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []selection.Record
	}{
		{"list", "- id: a\n  n: 1\n- id: b\n", []selection.Record{{"id": "a", "n": 1}, {"id": "b"}}},
		{"rows document", "rows:\n  - id: a\n", []selection.Record{{"id": "a"}}},
		{"json", `[{"id": "x", "tags": ["p", "q"]}]`, []selection.Record{{"id": "x", "tags": []any{"p", "q"}}}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeed([]byte(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("rows (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := ParseSeed([]byte("id: [")); err == nil {
		t.Error("invalid YAML should fail")
	}
	if _, err := ReadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
