// Package search holds the state of a search panel: its fields and the
// values the user has entered.
package search

import (
	"maps"
	"slices"
	"sync"

	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/field"
)

// Panel is one search panel, primary or overflow.
type Panel struct {
	mu      sync.RWMutex
	fields  []field.SearchField
	values  map[string]any
	layouts int
}

// NewPanel creates a panel seeded with the fields' default values.
func NewPanel(fields []field.SearchField) *Panel {
	return &Panel{
		fields: slices.Clone(fields),
		values: defaults.SearchValues(fields),
	}
}

// Fields returns the panel's fields.
func (p *Panel) Fields() []field.SearchField {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.fields)
}

// FieldsValue returns the current values, omitting empty ones.
func (p *Panel) FieldsValue() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		if !defaults.IsEmpty(v) {
			out[k] = v
		}
	}
	return out
}

// SetFieldsValue merges values into the panel. Keys the panel has no field
// for are ignored.
func (p *Panel) SetFieldsValue(values map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range values {
		if p.hasLocked(k) {
			p.values[k] = v
		}
	}
}

// ResetFields restores every value to its field default.
func (p *Panel) ResetFields() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = defaults.SearchValues(p.fields)
}

// SetFields swaps the panel's fields. Values of keys that still exist are
// kept; new keys start at their default.
func (p *Panel) SetFields(fields []field.SearchField) {
	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.values
	p.fields = slices.Clone(fields)
	p.values = defaults.SearchValues(fields)
	for k, v := range old {
		if p.hasLocked(k) {
			p.values[k] = v
		}
	}
}

// Resize asks the panel to recompute its layout.
func (p *Panel) Resize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.layouts++
}

// Layouts returns how many times the panel has been laid out.
func (p *Panel) Layouts() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.layouts
}

// Values returns every value, empty ones included.
func (p *Panel) Values() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.values)
}

func (p *Panel) hasLocked(key string) bool {
	for _, f := range p.fields {
		if f.Key == key && !f.Invalid {
			return true
		}
	}
	return false
}
