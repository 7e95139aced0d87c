package storage

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/selection"
	"github.com/artpar/searchtable/core/table"
)

// MemoryLoader serves pages from rows held in memory, matching the way the
// SQL loaders filter, search and sort.
type MemoryLoader struct {
	mu      sync.RWMutex
	rows    []selection.Record
	columns []string
	key     string
}

var _ table.Loader = (*MemoryLoader)(nil)

// NewMemoryLoader returns a loader over rows. Only keys listed in columns
// are filtered, searched or sorted on; an empty list allows every key.
func NewMemoryLoader(rows []selection.Record, columns []string, key string) *MemoryLoader {
	l := &MemoryLoader{columns: slices.Clone(columns), key: key}
	l.Replace(rows)
	return l
}

// Replace swaps the rows.
func (l *MemoryLoader) Replace(rows []selection.Record) {
	cp := make([]selection.Record, len(rows))
	for i, r := range rows {
		cp[i] = maps.Clone(r)
	}
	l.mu.Lock()
	l.rows = cp
	l.mu.Unlock()
}

// Load returns the requested page.
func (l *MemoryLoader) Load(ctx context.Context, p table.LoadParams) (table.LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return table.LoadResult{}, err
	}

	l.mu.RLock()
	var matched []selection.Record
	for _, r := range l.rows {
		if l.match(r, p.Filters, false) && l.match(r, p.Search, true) {
			matched = append(matched, maps.Clone(r))
		}
	}
	l.mu.RUnlock()

	l.sort(matched, p.Sorts)

	total := len(matched)
	page := matched
	if size := p.Pagination.PageSize; size > 0 {
		start := min(p.Pagination.Offset(), total)
		end := total
		if size < total-start {
			end = start + size
		}
		page = matched[start:end]
	}
	if page == nil {
		page = []selection.Record{}
	}
	return table.LoadResult{Rows: page, Total: total}, nil
}

func (l *MemoryLoader) allowed(key string) bool {
	return len(l.columns) == 0 || slices.Contains(l.columns, key)
}

func (l *MemoryLoader) match(r selection.Record, conds map[string]any, search bool) bool {
	for k, want := range conds {
		if !l.allowed(k) || defaults.IsEmpty(want) {
			continue
		}
		got := r[k]
		if list, ok := asList(want); ok {
			if len(list) == 0 {
				continue
			}
			if !slices.ContainsFunc(list, func(v any) bool { return equal(got, v) }) {
				return false
			}
			continue
		}
		if s, ok := want.(string); ok && search {
			if !strings.Contains(strings.ToLower(fmt.Sprint(got)), strings.ToLower(s)) {
				return false
			}
			continue
		}
		if !equal(got, want) {
			return false
		}
	}
	return true
}

func (l *MemoryLoader) sort(rows []selection.Record, sorts []defaults.SortItem) {
	var order []defaults.SortItem
	seen := map[string]bool{}
	for _, s := range sorts {
		if l.allowed(s.Key) && !seen[s.Key] {
			seen[s.Key] = true
			order = append(order, s)
		}
	}
	if l.key != "" && !seen[l.key] {
		order = append(order, defaults.SortItem{Key: l.key, Order: field.Ascend})
	}
	if len(order) == 0 {
		return
	}

	slices.SortStableFunc(rows, func(a, b selection.Record) int {
		for _, s := range order {
			c := compare(a[s.Key], b[s.Key])
			if s.Order == field.Descend {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func equal(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compare orders nil first, numbers numerically and anything else as text.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, aok := number(a)
	fb, bok := number(b)
	if aok && bok {
		return cmp.Compare(fa, fb)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
