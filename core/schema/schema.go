// Package schema splits a resolved field list into the per-surface schemas
// consumed by the search panel, the data table and the dialog form.
package schema

import (
	"slices"

	"github.com/artpar/searchtable/core/field"
)

// Layout is the full set of surface schemas derived from one field list.
type Layout struct {
	Search Search `yaml:"search" json:"search"`
	Table  Table  `yaml:"table" json:"table"`
	Dialog Dialog `yaml:"dialog" json:"dialog"`
}

// Search holds the search inputs, split between the always visible primary
// panel and the overflow panel. Every searchable field is in exactly one.
type Search struct {
	Primary []field.SearchField `yaml:"primary" json:"primary"`
	More    []field.SearchField `yaml:"more" json:"more"`
}

// Table holds every column in descriptor order, hidden ones included.
type Table struct {
	Fields []field.TableField `yaml:"fields" json:"fields"`
}

// Dialog holds the inputs of the create/edit dialog.
type Dialog struct {
	Fields []field.DialogField `yaml:"fields" json:"fields"`
}

// Derive normalizes and splits a field list in one step.
func Derive(fields []field.Descriptor) (Layout, []field.Diagnostic) {
	resolved, diags := field.Normalize(fields)
	return Split(resolved), diags
}

// Split partitions resolved fields in a single pass. The search and table
// decisions are independent of each other. Split is pure, so splitting the
// same input twice yields equal layouts.
func Split(resolved []field.Resolved) Layout {
	l := Layout{
		Search: Search{
			Primary: []field.SearchField{},
			More:    []field.SearchField{},
		},
		Table:  Table{Fields: make([]field.TableField, 0, len(resolved))},
		Dialog: Dialog{Fields: []field.DialogField{}},
	}

	for _, r := range resolved {
		if r.Search != nil {
			if r.Search.Position == field.PositionMore {
				l.Search.More = append(l.Search.More, *r.Search)
			} else {
				l.Search.Primary = append(l.Search.Primary, *r.Search)
			}
		}

		l.Table.Fields = append(l.Table.Fields, r.Table)

		if r.Dialog != nil {
			l.Dialog.Fields = append(l.Dialog.Fields, *r.Dialog)
		}
	}

	return l
}

// All returns the primary fields followed by the overflow fields.
func (s Search) All() []field.SearchField {
	return slices.Concat(s.Primary, s.More)
}

// Len returns the number of search inputs across both panels.
func (s Search) Len() int {
	return len(s.Primary) + len(s.More)
}

// Visible returns the columns that are rendered.
func (t Table) Visible() []field.TableField {
	visible := make([]field.TableField, 0, len(t.Fields))
	for _, f := range t.Fields {
		if !f.Hidden {
			visible = append(visible, f)
		}
	}
	return visible
}

// Field looks up a column by key.
func (t Table) Field(key string) (field.TableField, bool) {
	for _, f := range t.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return field.TableField{}, false
}

// Keys returns the column keys in order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.Key != "" {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Required returns the keys of required dialog inputs.
func (d Dialog) Required() []string {
	var keys []string
	for _, f := range d.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
