// Package defaults derives the initial filter, sort and form state from the
// surface schemas. Every function here is pure.
package defaults

import (
	"reflect"
	"sort"

	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
)

// FilterState maps a column key to its filter value.
type FilterState map[string]any

// SortItem is one entry of a multi-column sort. Position in the slice is the
// precedence; the first item is the primary sort key.
type SortItem struct {
	Key   string          `yaml:"key" json:"key"`
	Order field.SortOrder `yaml:"order" json:"order"`
}

// Filters collects the default filter of every column whose default is set
// and is not an empty sentinel (nil, false, zero, "").
func Filters(t schema.Table) FilterState {
	filters := FilterState{}
	for _, f := range t.Fields {
		if f.Key == "" || IsEmpty(f.DefaultFilterValue) {
			continue
		}
		filters[f.Key] = f.DefaultFilterValue
	}
	return filters
}

// Sorts collects the default sort of every column that declares one. When any
// of them carries an explicit sort order, indexed columns come first in
// ascending index order and the rest follow in declaration order.
func Sorts(t schema.Table) []SortItem {
	type indexed struct {
		item  SortItem
		index int
		has   bool
	}

	var collected []indexed
	hasIndex := false
	for _, f := range t.Fields {
		if f.Key == "" || f.DefaultSortsValue == "" {
			continue
		}
		it := indexed{item: SortItem{Key: f.Key, Order: f.DefaultSortsValue}}
		if f.SortOrder != nil && *f.SortOrder >= 0 {
			it.index, it.has = *f.SortOrder, true
			hasIndex = true
		}
		collected = append(collected, it)
	}

	if hasIndex {
		sort.SliceStable(collected, func(i, j int) bool {
			a, b := collected[i], collected[j]
			if a.has != b.has {
				return a.has
			}
			return a.has && a.index < b.index
		})
	}

	sorts := make([]SortItem, 0, len(collected))
	for _, it := range collected {
		sorts = append(sorts, it.item)
	}
	return sorts
}

// FormValues maps each search and dialog input to its default value. Dialog
// values are applied last.
func FormValues(search schema.Search, dialog schema.Dialog) map[string]any {
	values := make(map[string]any)
	for _, f := range search.All() {
		if f.DefaultValue != nil && !f.Invalid {
			values[f.Key] = f.DefaultValue
		}
	}
	for _, f := range dialog.Fields {
		if f.DefaultValue != nil {
			values[f.Key] = f.DefaultValue
		}
	}
	return values
}

// SearchValues maps each input of one search panel to its default value.
func SearchValues(fields []field.SearchField) map[string]any {
	values := make(map[string]any)
	for _, f := range fields {
		if f.DefaultValue != nil && !f.Invalid {
			values[f.Key] = f.DefaultValue
		}
	}
	return values
}

// IsEmpty reports whether v is one of the values treated as "no value":
// nil, false, numeric zero or the empty string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.String:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
