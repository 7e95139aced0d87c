package shell

import (
	"maps"
	"sync"
)

// Form holds the values of the create/edit dialog form.
type Form struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{values: map[string]any{}}
}

// Values returns a copy of the form values.
func (f *Form) Values() map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.values)
}

// SetValues merges values into the form.
func (f *Form) SetValues(values map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	maps.Copy(f.values, values)
}

// Reset replaces every value.
func (f *Form) Reset(values map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = maps.Clone(values)
	if f.values == nil {
		f.values = map[string]any{}
	}
}
