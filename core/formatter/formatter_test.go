package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func testLayout(t *testing.T) (schema.Layout, []field.Diagnostic) {
	t.Helper()
	return schema.Derive([]field.Descriptor{
		{Key: "id", Title: "ID"},
		{Key: "name", Title: "Name", Sort: true, Search: field.On[field.SearchOverride](), Dialog: field.With(field.DialogOverride{Required: true})},
		{Key: "status", Title: "Status", Kind: "selct", Search: field.With(field.SearchOverride{Position: field.PositionMore}), DefaultValue: "open"},
		{Key: "secret", Title: "Secret", Table: field.Off[field.TableOverride]()},
	})
}

func testRows() []map[string]any {
	return []map[string]any{
		{"id": "1", "name": "Alice", "status": "open", "secret": "x"},
		{"id": "2", "name": "Bob", "status": nil, "secret": "y"},
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Default() != nil {
		t.Error("empty registry should have no default")
	}
	if err := r.Register(NewJSONFormatter()); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(NewJSONFormatter()); err == nil {
		t.Error("duplicate register should fail")
	}
	if got := r.Default().Name(); got != "json" {
		t.Errorf("fallback default = %q, want json", got)
	}
	if err := r.SetDefault("table"); err == nil {
		t.Error("SetDefault to unknown formatter should fail")
	}
	r.Register(NewTableFormatter())
	if got := r.Default().Name(); got != "table" {
		t.Errorf("default = %q, want table", got)
	}
	if diff := cmp.Diff([]string{"json", "table"}, r.List()); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}
}

func TestDefaultRegistry(t *testing.T) {
	if diff := cmp.Diff([]string{"json", "table", "yaml"}, List()); diff != "" {
		t.Errorf("registered formatters (-want +got):\n%s", diff)
	}
	if _, ok := Get("csv"); ok {
		t.Error("csv should not be registered")
	}
}

func TestTableFormatLayout(t *testing.T) {
	layout, diags := testLayout(t)
	var buf bytes.Buffer
	if err := NewTableFormatter().FormatLayout(&buf, layout, diags, FormatOptions{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"SEARCH (1 primary, 1 more)",
		"TABLE (4 columns)",
		"DIALOG (1 inputs)",
		"1 problem(s):",
		`did you mean "select"?`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableFormatRows(t *testing.T) {
	layout, _ := testLayout(t)
	f := NewTableFormatter()

	var buf bytes.Buffer
	if err := f.FormatRows(&buf, layout.Table.Fields, testRows(), 7, FormatOptions{}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4:\n%s", len(lines), buf.String())
	}
	if strings.Contains(lines[0], "SECRET") {
		t.Errorf("hidden column in header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "STATUS") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "-") {
		t.Errorf("nil value not rendered as '-': %q", lines[2])
	}
	if lines[3] != "(2 of 7)" {
		t.Errorf("footer = %q", lines[3])
	}

	buf.Reset()
	f.FormatRows(&buf, layout.Table.Fields, nil, 0, FormatOptions{})
	if got := buf.String(); got != "No rows found.\n" {
		t.Errorf("empty output = %q", got)
	}
}

func TestFormatValue(t *testing.T) {
	f := NewTableFormatter()
	tests := []struct {
		val      any
		maxWidth int
		want     string
	}{
		{nil, 0, "-"},
		{"", 0, "-"},
		{"text", 0, "text"},
		{true, 0, "yes"},
		{false, 0, "no"},
		{float64(3), 0, "3"},
		{1.5, 0, "1.50"},
		{42, 0, "42"},
		{[]byte("x"), 0, "[binary]"},
		{[]string{"a", "b"}, 0, `["a","b"]`},
		{"abcdefghij", 6, "abc..."},
	}
	for _, tt := range tests {
		if got := f.formatValue(tt.val, tt.maxWidth); got != tt.want {
			t.Errorf("formatValue(%v, %d) = %q, want %q", tt.val, tt.maxWidth, got, tt.want)
		}
	}
}

func TestJSONFormatRows(t *testing.T) {
	layout, _ := testLayout(t)
	var buf bytes.Buffer
	err := NewJSONFormatter().FormatRows(&buf, layout.Table.Fields, testRows(), 2, FormatOptions{Columns: []string{"name", "secret"}, Compact: true})
	if err != nil {
		t.Fatal(err)
	}
	var got rowsDocument
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := rowsDocument{Total: 2, Count: 2, Data: []map[string]any{
		{"name": "Alice", "secret": "x"},
		{"name": "Bob", "secret": "y"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestJSONFormatLayout(t *testing.T) {
	layout, diags := testLayout(t)
	var buf bytes.Buffer
	if err := NewJSONFormatter().FormatLayout(&buf, layout, diags, FormatOptions{}); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Layout struct {
			Search struct {
				Primary []field.SearchField `json:"primary"`
			} `json:"search"`
		} `json:"layout"`
		Diagnostics []field.Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Layout.Search.Primary) != 1 || got.Layout.Search.Primary[0].Key != "name" {
		t.Errorf("primary = %+v", got.Layout.Search.Primary)
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Key != "status" {
		t.Errorf("diagnostics = %+v", got.Diagnostics)
	}
}

func TestYAMLFormatLayout(t *testing.T) {
	layout, diags := testLayout(t)
	var buf bytes.Buffer
	if err := NewYAMLFormatter().FormatLayout(&buf, layout, diags, FormatOptions{}); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if _, ok := got["layout"]; !ok {
		t.Errorf("missing layout key:\n%s", buf.String())
	}
	if d, _ := got["diagnostics"].([]any); len(d) != 1 {
		t.Errorf("diagnostics = %v", got["diagnostics"])
	}
}

func TestFormatError(t *testing.T) {
	err := errors.New("boom")
	for _, f := range []Formatter{NewTableFormatter(), NewJSONFormatter(), NewYAMLFormatter()} {
		var buf bytes.Buffer
		if e := f.FormatError(&buf, err); e != nil {
			t.Fatalf("%s: %v", f.Name(), e)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("%s output = %q", f.Name(), buf.String())
		}
	}
}
