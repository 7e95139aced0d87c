package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatLayout formats a layout as JSON.
func (f *JSONFormatter) FormatLayout(w io.Writer, layout schema.Layout, diags []field.Diagnostic, opts FormatOptions) error {
	return f.encode(w, layoutDocument{Layout: layout, Diagnostics: diags}, opts.Compact)
}

// FormatRows formats a page of rows as JSON.
func (f *JSONFormatter) FormatRows(w io.Writer, columns []field.TableField, rows []map[string]any, total int, opts FormatOptions) error {
	filtered := filterRows(resolveColumns(columns, opts.Columns), rows)
	return f.encode(w, rowsDocument{Total: total, Count: len(filtered), Data: filtered}, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()}, false)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
