package formatter

import (
	"fmt"
	"io"

	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatLayout formats a layout as YAML.
func (f *YAMLFormatter) FormatLayout(w io.Writer, layout schema.Layout, diags []field.Diagnostic, opts FormatOptions) error {
	return f.encode(w, layoutDocument{Layout: layout, Diagnostics: diags})
}

// FormatRows formats a page of rows as YAML.
func (f *YAMLFormatter) FormatRows(w io.Writer, columns []field.TableField, rows []map[string]any, total int, opts FormatOptions) error {
	filtered := filterRows(resolveColumns(columns, opts.Columns), rows)
	return f.encode(w, rowsDocument{Total: total, Count: len(filtered), Data: filtered})
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()})
}

func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
