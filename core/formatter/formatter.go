// Package formatter provides a pluggable output formatting system.
// Formatters render derived layouts and loaded rows as table, json or yaml.
package formatter

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
)

// Formatter converts structured data to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatLayout formats the surface schemas of a field list together
	// with the diagnostics found while deriving them.
	FormatLayout(w io.Writer, layout schema.Layout, diags []field.Diagnostic, opts FormatOptions) error

	// FormatRows formats one page of rows under the given table columns.
	FormatRows(w io.Writer, columns []field.TableField, rows []map[string]any, total int, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns specifies which fields to include (nil = all visible columns).
	Columns []string

	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json/yaml).
	Compact bool

	// MaxWidth truncates long values (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[r.defaultFmt]
	if !ok {
		// Fallback to first available
		for _, fmt := range r.formatters {
			return fmt
		}
		return nil
	}
	return f
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// resolveColumns returns the requested columns in request order, or every
// visible column. Unknown requested keys are kept with the key as title.
func resolveColumns(columns []field.TableField, requested []string) []field.TableField {
	if len(requested) == 0 {
		var out []field.TableField
		for _, c := range columns {
			if !c.Hidden {
				out = append(out, c)
			}
		}
		return out
	}

	out := make([]field.TableField, 0, len(requested))
	for _, key := range requested {
		i := slices.IndexFunc(columns, func(c field.TableField) bool { return c.Key == key })
		if i >= 0 {
			out = append(out, columns[i])
		} else {
			out = append(out, field.TableField{Key: key, Title: key})
		}
	}
	return out
}

// filterRows keeps only the given columns of every row.
func filterRows(columns []field.TableField, rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := make(map[string]any, len(columns))
		for _, c := range columns {
			if v, ok := r[c.Key]; ok {
				m[c.Key] = v
			}
		}
		out[i] = m
	}
	return out
}

// layoutDocument is the json/yaml shape of a layout.
type layoutDocument struct {
	Layout      schema.Layout      `json:"layout" yaml:"layout"`
	Diagnostics []field.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// rowsDocument is the json/yaml shape of a page of rows.
type rowsDocument struct {
	Total int              `json:"total" yaml:"total"`
	Count int              `json:"count" yaml:"count"`
	Data  []map[string]any `json:"data" yaml:"data"`
}
