package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatLayout prints one section per surface, then the diagnostics.
func (f *TableFormatter) FormatLayout(w io.Writer, layout schema.Layout, diags []field.Diagnostic, opts FormatOptions) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "SEARCH (%d primary, %d more)\n", len(layout.Search.Primary), len(layout.Search.More))
	if !opts.NoHeader {
		fmt.Fprintln(tw, "KEY\tTITLE\tTYPE\tPOSITION\tDEFAULT")
	}
	for _, s := range layout.Search.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Key, s.Title, s.Kind, s.Position, f.formatValue(s.DefaultValue, opts.MaxWidth))
	}

	fmt.Fprintf(tw, "\nTABLE (%d columns)\n", len(layout.Table.Fields))
	if !opts.NoHeader {
		fmt.Fprintln(tw, "KEY\tTITLE\tTYPE\tALIGN\tHIDDEN\tSORT\tDEFAULT SORT")
	}
	for _, c := range layout.Table.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Key, c.Title, c.Kind, c.Align,
			f.formatValue(c.Hidden, 0), f.formatValue(c.Sortable, 0),
			f.formatValue(string(c.DefaultSortsValue), 0))
	}

	fmt.Fprintf(tw, "\nDIALOG (%d inputs)\n", len(layout.Dialog.Fields))
	if !opts.NoHeader {
		fmt.Fprintln(tw, "KEY\tTITLE\tTYPE\tREQUIRED\tDEFAULT")
	}
	for _, d := range layout.Dialog.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Key, d.Title, d.Kind, f.formatValue(d.Required, 0), f.formatValue(d.DefaultValue, opts.MaxWidth))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if len(diags) > 0 {
		fmt.Fprintf(w, "\n%d problem(s):\n", len(diags))
		for _, d := range diags {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	}
	return nil
}

// FormatRows formats a page of rows as a table.
func (f *TableFormatter) FormatRows(w io.Writer, columns []field.TableField, rows []map[string]any, total int, opts FormatOptions) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No rows found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	cols := resolveColumns(columns, opts.Columns)

	if !opts.NoHeader {
		headers := make([]string, 0, len(cols))
		for _, c := range cols {
			headers = append(headers, strings.ToUpper(f.formatLabel(c)))
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, r := range rows {
		values := make([]string, 0, len(cols))
		for _, c := range cols {
			values = append(values, f.formatValue(r[c.Key], opts.MaxWidth))
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d of %d)\n", len(rows), total)
	return nil
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

// formatLabel uses the column title, or the key when the title is empty.
func (f *TableFormatter) formatLabel(c field.TableField) string {
	if c.Title != "" {
		return c.Title
	}
	return c.Key
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		if v == "" {
			return "-"
		}
		str = v
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case []byte:
		str = "[binary]"
	case float64:
		if v == float64(int64(v)) {
			str = fmt.Sprintf("%d", int64(v))
		} else {
			str = fmt.Sprintf("%.2f", v)
		}
	case int, int64:
		str = fmt.Sprint(v)
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}

	return str
}

func init() {
	Register(NewTableFormatter())
}
