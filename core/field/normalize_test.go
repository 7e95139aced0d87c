package field

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeDefaults(t *testing.T) {
	resolved, diags := Normalize([]Descriptor{
		{Key: "org", Title: "Organization", Search: On[SearchOverride]()},
	})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(resolved) != 1 {
		t.Fatalf("len(resolved) = %d, want 1", len(resolved))
	}

	r := resolved[0]
	want := &SearchField{Key: "org", Title: "Organization", Kind: KindInput, Position: PositionPrimary}
	if diff := cmp.Diff(want, r.Search); diff != "" {
		t.Errorf("search field mismatch (-want +got):\n%s", diff)
	}
	if r.Table.Align != AlignCenter {
		t.Errorf("Table.Align = %q, want %q", r.Table.Align, AlignCenter)
	}
	if r.Table.Hidden {
		t.Error("Table.Hidden = true for unset table surface")
	}
	if r.Dialog != nil {
		t.Errorf("Dialog = %+v, want nil", r.Dialog)
	}
}

func TestNormalizeSearchOverride(t *testing.T) {
	resolved, _ := Normalize([]Descriptor{{
		Key:     "status",
		Title:   "Status",
		Kind:    KindSelect,
		Options: []Option{{Label: "On", Value: 1}},
		Search: With(SearchOverride{
			Key:      "status_in",
			Position: PositionMore,
			Mode:     "multiple",
		}),
	}})

	s := resolved[0].Search
	if s == nil {
		t.Fatal("Search is nil")
	}
	if s.Key != "status_in" {
		t.Errorf("Key = %q, want status_in", s.Key)
	}
	if s.Position != PositionMore {
		t.Errorf("Position = %q, want more", s.Position)
	}
	if s.Kind != KindSelect || s.Mode != "multiple" {
		t.Errorf("Kind/Mode = %q/%q, want select/multiple", s.Kind, s.Mode)
	}
	if len(s.Options) != 1 {
		t.Errorf("Options = %v, want field options", s.Options)
	}
}

func TestNormalizePositionOtherThanMoreIsPrimary(t *testing.T) {
	resolved, _ := Normalize([]Descriptor{
		{Key: "a", Search: With(SearchOverride{Position: "sidebar"})},
		{Key: "b", Search: With(SearchOverride{Position: PositionPrimary})},
	})
	for _, r := range resolved {
		if r.Search.Position != PositionPrimary {
			t.Errorf("%s: Position = %q, want primary", r.Source.Key, r.Search.Position)
		}
	}
}

func TestNormalizeMissingSearchKeyBecomesPlaceholder(t *testing.T) {
	resolved, diags := Normalize([]Descriptor{
		{Title: "Nameless", Search: On[SearchOverride]()},
	})

	s := resolved[0].Search
	if s == nil {
		t.Fatal("Search is nil, want placeholder")
	}
	if !s.Invalid || s.Title != ConfigErrorTitle || s.Kind != KindInput {
		t.Errorf("placeholder = %+v", s)
	}
	if len(diags) != 1 || diags[0].Surface != "search" {
		t.Errorf("diags = %v, want one search diagnostic", diags)
	}
}

func TestNormalizeSearchKeyFallsBackFromOverride(t *testing.T) {
	resolved, diags := Normalize([]Descriptor{
		{Search: With(SearchOverride{Key: "q"})},
	})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if resolved[0].Search.Key != "q" || resolved[0].Search.Invalid {
		t.Errorf("Search = %+v, want key q", resolved[0].Search)
	}
}

func TestNormalizeUnknownKind(t *testing.T) {
	resolved, diags := Normalize([]Descriptor{{Key: "notes", Kind: "textare"}})

	if resolved[0].Table.Kind != KindInput {
		t.Errorf("Kind = %q, want input", resolved[0].Table.Kind)
	}
	if len(diags) != 1 {
		t.Fatalf("diags = %v, want 1", diags)
	}
	if !strings.Contains(diags[0].Message, `did you mean "textarea"`) {
		t.Errorf("Message = %q, want suggestion", diags[0].Message)
	}
}

func TestNormalizeUnknownOverrideKind(t *testing.T) {
	resolved, diags := Normalize([]Descriptor{{
		Key:    "status",
		Kind:   KindSelect,
		Search: With(SearchOverride{Kind: "selct"}),
		Dialog: With(DialogOverride{Kind: "bogus"}),
	}})

	if resolved[0].Table.Kind != KindSelect {
		t.Errorf("Table.Kind = %q, want select", resolved[0].Table.Kind)
	}
	if resolved[0].Search.Kind != KindInput || resolved[0].Dialog.Kind != KindInput {
		t.Errorf("override kinds = %q, %q, want input", resolved[0].Search.Kind, resolved[0].Dialog.Kind)
	}

	want := []Diagnostic{
		{Index: 0, Key: "status", Surface: "search", Message: `unknown type "selct" (did you mean "select"?), using "input"`},
		{Index: 0, Key: "status", Surface: "dialog", Message: `unknown type "bogus", using "input"`},
	}
	if diff := cmp.Diff(want, diags); diff != "" {
		t.Errorf("diags (-want +got):\n%s", diff)
	}
}

func TestNormalizeTable(t *testing.T) {
	tests := []struct {
		name   string
		field  Descriptor
		hidden bool
		align  Align
		sort   bool
	}{
		{name: "unset", field: Descriptor{Key: "a"}, align: AlignCenter},
		{name: "true", field: Descriptor{Key: "a", Table: On[TableOverride]()}, align: AlignCenter},
		{name: "false hides", field: Descriptor{Key: "a", Table: Off[TableOverride]()}, hidden: true, align: AlignCenter},
		{name: "field align", field: Descriptor{Key: "a", Align: AlignLeft}, align: AlignLeft},
		{name: "override align", field: Descriptor{Key: "a", Align: AlignLeft, Table: With(TableOverride{Align: AlignRight})}, align: AlignRight},
		{name: "field sort", field: Descriptor{Key: "a", Sort: true}, align: AlignCenter, sort: true},
		{name: "override disables sort", field: Descriptor{Key: "a", Sort: true, Table: With(TableOverride{Sort: new(bool)})}, align: AlignCenter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, _ := Normalize([]Descriptor{tt.field})
			tf := resolved[0].Table
			if tf.Hidden != tt.hidden {
				t.Errorf("Hidden = %v, want %v", tf.Hidden, tt.hidden)
			}
			if tf.Align != tt.align {
				t.Errorf("Align = %q, want %q", tf.Align, tt.align)
			}
			if tf.Sortable != tt.sort {
				t.Errorf("Sortable = %v, want %v", tf.Sortable, tt.sort)
			}
		})
	}
}

func TestNormalizeTableSortOverrides(t *testing.T) {
	resolved, _ := Normalize([]Descriptor{{
		Key:               "created_at",
		DefaultSortsValue: Ascend,
		SortOrder:         IntPtr(3),
		Table:             With(TableOverride{DefaultSortsValue: Descend, SortOrder: IntPtr(0)}),
	}})

	tf := resolved[0].Table
	if tf.DefaultSortsValue != Descend {
		t.Errorf("DefaultSortsValue = %q, want descend", tf.DefaultSortsValue)
	}
	if tf.SortOrder == nil || *tf.SortOrder != 0 {
		t.Errorf("SortOrder = %v, want 0", tf.SortOrder)
	}
}

func TestNormalizeDialog(t *testing.T) {
	resolved, diags := Normalize([]Descriptor{
		{Key: "org", Title: "Org", Dialog: With(DialogOverride{Required: true})},
		{Key: "notes", Kind: KindTextarea, Dialog: On[DialogOverride]()},
		{Key: "id", Dialog: Off[DialogOverride]()},
		{Title: "keyless", Dialog: On[DialogOverride]()},
	})

	if d := resolved[0].Dialog; d == nil || !d.Required || d.Title != "Org" {
		t.Errorf("org dialog = %+v, want required", d)
	}
	if d := resolved[1].Dialog; d == nil || d.Kind != KindTextarea || d.Required {
		t.Errorf("notes dialog = %+v, want optional textarea", d)
	}
	if resolved[2].Dialog != nil {
		t.Errorf("id dialog = %+v, want nil", resolved[2].Dialog)
	}
	if resolved[3].Dialog != nil {
		t.Errorf("keyless dialog = %+v, want dropped", resolved[3].Dialog)
	}
	if len(diags) != 1 || diags[0].Surface != "dialog" {
		t.Errorf("diags = %v, want one dialog diagnostic", diags)
	}
}

func TestNormalizeUserKeyAndChildren(t *testing.T) {
	resolved, _ := Normalize([]Descriptor{{
		Key:      "region",
		UserKey:  []string{"load_url", "missing"},
		Extra:    map[string]any{"load_url": "/regions", "render": "badge"},
		Children: []Descriptor{{Key: "city"}},
		Search:   On[SearchOverride](),
	}})

	s := resolved[0].Search
	if diff := cmp.Diff(map[string]any{"load_url": "/regions"}, s.Attrs); diff != "" {
		t.Errorf("Attrs mismatch (-want +got):\n%s", diff)
	}
	if len(s.Children) != 1 || s.Children[0].Key != "city" {
		t.Errorf("Children = %+v", s.Children)
	}
	if resolved[0].Table.Extra["render"] != "badge" {
		t.Errorf("Table.Extra = %v, want render passthrough", resolved[0].Table.Extra)
	}
}

func TestNormalizeDoesNotAliasInput(t *testing.T) {
	order := 1
	in := []Descriptor{{
		Key:       "a",
		Options:   []Option{{Label: "x", Value: "x"}},
		SortOrder: &order,
		Search:    On[SearchOverride](),
	}}
	resolved, _ := Normalize(in)

	resolved[0].Search.Options[0].Label = "changed"
	*resolved[0].Table.SortOrder = 9

	if in[0].Options[0].Label != "x" {
		t.Error("Normalize aliased the options slice")
	}
	if order != 1 {
		t.Error("Normalize aliased the sort order")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	resolved, diags := Normalize(nil)
	if resolved == nil || len(resolved) != 0 {
		t.Errorf("resolved = %v, want empty non-nil", resolved)
	}
	if len(diags) != 0 {
		t.Errorf("diags = %v, want none", diags)
	}
}
