package field

import (
	"fmt"
	"maps"
	"slices"

	"github.com/agnivade/levenshtein"
)

// ConfigErrorTitle is the title of the placeholder that replaces a search
// field that cannot be resolved.
const ConfigErrorTitle = "configuration error"

// Resolved is a descriptor with every surface override resolved into its
// explicit form. Search and Dialog are nil when the field does not take part
// in that surface. Table is always resolved.
type Resolved struct {
	Source Descriptor
	Search *SearchField
	Table  TableField
	Dialog *DialogField
}

// SearchField is a fully resolved search input.
type SearchField struct {
	Key          string         `yaml:"key" json:"key"`
	Title        string         `yaml:"title" json:"title"`
	Kind         Kind           `yaml:"type" json:"type"`
	Position     Position       `yaml:"position" json:"position"`
	Options      []Option       `yaml:"options,omitempty" json:"options,omitempty"`
	Mode         string         `yaml:"mode,omitempty" json:"mode,omitempty"`
	Placeholder  string         `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	DefaultValue any            `yaml:"default_value,omitempty" json:"defaultValue,omitempty"`
	Children     []Descriptor   `yaml:"children,omitempty" json:"children,omitempty"`
	Attrs        map[string]any `yaml:"attrs,omitempty" json:"attrs,omitempty"`

	// Invalid marks the configuration-error placeholder.
	Invalid bool `yaml:"invalid,omitempty" json:"invalid,omitempty"`
}

// TableField is a fully resolved table column.
type TableField struct {
	Key                string         `yaml:"key" json:"key"`
	Title              string         `yaml:"title" json:"title"`
	Kind               Kind           `yaml:"type" json:"type"`
	Align              Align          `yaml:"align" json:"align"`
	Hidden             bool           `yaml:"hidden" json:"hidden"`
	Sortable           bool           `yaml:"sortable,omitempty" json:"sortable,omitempty"`
	Width              int            `yaml:"width,omitempty" json:"width,omitempty"`
	Ellipsis           bool           `yaml:"ellipsis,omitempty" json:"ellipsis,omitempty"`
	Options            []Option       `yaml:"options,omitempty" json:"options,omitempty"`
	DefaultFilterValue any            `yaml:"default_filter_value,omitempty" json:"defaultFilterValue,omitempty"`
	DefaultSortsValue  SortOrder      `yaml:"default_sorts_value,omitempty" json:"defaultSortsValue,omitempty"`
	SortOrder          *int           `yaml:"sort_order,omitempty" json:"sortOrder,omitempty"`
	Extra              map[string]any `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// DialogField is a fully resolved dialog form input.
type DialogField struct {
	Key          string   `yaml:"key" json:"key"`
	Title        string   `yaml:"title" json:"title"`
	Kind         Kind     `yaml:"type" json:"type"`
	Required     bool     `yaml:"required,omitempty" json:"required,omitempty"`
	ReadOnly     bool     `yaml:"readonly,omitempty" json:"readonly,omitempty"`
	DefaultValue any      `yaml:"default_value,omitempty" json:"defaultValue,omitempty"`
	Options      []Option `yaml:"options,omitempty" json:"options,omitempty"`
}

// Diagnostic describes a configuration problem that was degraded rather than
// reported as an error.
type Diagnostic struct {
	Index   int    `yaml:"index" json:"index"`
	Key     string `yaml:"key" json:"key"`
	Surface string `yaml:"surface,omitempty" json:"surface,omitempty"`
	Message string `yaml:"message" json:"message"`
}

func (d Diagnostic) String() string {
	if d.Surface != "" {
		return fmt.Sprintf("field #%d %q (%s): %s", d.Index, d.Key, d.Surface, d.Message)
	}
	return fmt.Sprintf("field #%d %q: %s", d.Index, d.Key, d.Message)
}

// Normalize resolves the surface shorthand of every descriptor. It never fails:
// malformed descriptors are degraded and reported as diagnostics.
func Normalize(fields []Descriptor) ([]Resolved, []Diagnostic) {
	resolved := make([]Resolved, 0, len(fields))
	var diags []Diagnostic

	for i, f := range fields {
		kind, diag := resolveKind(f.Kind)
		if diag != "" {
			diags = append(diags, Diagnostic{Index: i, Key: f.Key, Message: diag})
		}

		r := Resolved{
			Source: f,
			Table:  resolveTable(f, kind),
		}

		if f.Search.Enabled() {
			search, kindDiag, ok := resolveSearch(f, kind)
			if kindDiag != "" {
				diags = append(diags, Diagnostic{Index: i, Key: f.Key, Surface: "search", Message: kindDiag})
			}
			if !ok {
				diags = append(diags, Diagnostic{Index: i, Key: f.Key, Surface: "search", Message: "no key to search by"})
				search = placeholder(i)
			}
			r.Search = &search
		}

		if f.Dialog.Enabled() {
			dialog, kindDiag, ok := resolveDialog(f, kind)
			if kindDiag != "" {
				diags = append(diags, Diagnostic{Index: i, Key: f.Key, Surface: "dialog", Message: kindDiag})
			}
			if ok {
				r.Dialog = &dialog
			} else {
				diags = append(diags, Diagnostic{Index: i, Key: f.Key, Surface: "dialog", Message: "no key to bind the input to, dropped"})
			}
		}

		resolved = append(resolved, r)
	}

	return resolved, diags
}

// resolveKind defaults an empty kind to input and degrades unknown kinds.
func resolveKind(k Kind) (Kind, string) {
	if k == "" {
		return KindInput, ""
	}
	if k.IsValid() {
		return k, ""
	}
	if s := suggestKind(k); s != "" {
		return KindInput, fmt.Sprintf("unknown type %q (did you mean %q?), using %q", k, s, KindInput)
	}
	return KindInput, fmt.Sprintf("unknown type %q, using %q", k, KindInput)
}

// suggestKind returns the closest known kind within an edit distance of 3.
func suggestKind(k Kind) Kind {
	best := Kind("")
	bestDist := 4
	for _, known := range Kinds {
		d := levenshtein.ComputeDistance(string(k), string(known))
		if d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}

// resolveSearch also returns the diagnostic for an unknown override kind.
func resolveSearch(f Descriptor, kind Kind) (SearchField, string, bool) {
	o := f.Search.Override()

	sf := SearchField{
		Key:          firstNonEmpty(o.Key, f.Key),
		Title:        firstNonEmpty(o.Title, f.Title),
		Kind:         kind,
		Position:     PositionPrimary,
		Options:      slices.Clone(f.Options),
		Mode:         firstNonEmpty(o.Mode, f.Mode),
		Placeholder:  o.Placeholder,
		DefaultValue: f.DefaultValue,
		Children:     slices.Clone(f.Children),
		Attrs:        pick(f.Extra, f.UserKey),
	}
	if sf.Key == "" {
		return SearchField{}, "", false
	}
	var diag string
	if o.Kind != "" {
		sf.Kind, diag = resolveKind(o.Kind)
	}
	if o.Position == PositionMore {
		sf.Position = PositionMore
	}
	if len(o.Options) > 0 {
		sf.Options = slices.Clone(o.Options)
	}
	if o.DefaultValue != nil {
		sf.DefaultValue = o.DefaultValue
	}
	return sf, diag, true
}

func resolveTable(f Descriptor, kind Kind) TableField {
	o := f.Table.Override()

	tf := TableField{
		Key:                f.Key,
		Title:              firstNonEmpty(o.Title, f.Title),
		Kind:               kind,
		Align:              f.Align,
		Hidden:             f.Table.Disabled(),
		Sortable:           f.Sort,
		Width:              o.Width,
		Ellipsis:           o.Ellipsis,
		Options:            slices.Clone(f.Options),
		DefaultFilterValue: f.DefaultFilterValue,
		DefaultSortsValue:  f.DefaultSortsValue,
		SortOrder:          f.SortOrder,
		Extra:              maps.Clone(f.Extra),
	}
	if o.Align != "" {
		tf.Align = o.Align
	}
	if tf.Align == "" {
		tf.Align = AlignCenter
	}
	if o.Sort != nil {
		tf.Sortable = *o.Sort
	}
	if o.DefaultFilterValue != nil {
		tf.DefaultFilterValue = o.DefaultFilterValue
	}
	if o.DefaultSortsValue != "" {
		tf.DefaultSortsValue = o.DefaultSortsValue
	}
	if o.SortOrder != nil {
		tf.SortOrder = o.SortOrder
	}
	if tf.SortOrder != nil {
		v := *tf.SortOrder
		tf.SortOrder = &v
	}
	return tf
}

func resolveDialog(f Descriptor, kind Kind) (DialogField, string, bool) {
	o := f.Dialog.Override()

	df := DialogField{
		Key:          firstNonEmpty(o.Key, f.Key),
		Title:        firstNonEmpty(o.Title, f.Title),
		Kind:         kind,
		Required:     o.Required,
		ReadOnly:     o.ReadOnly,
		DefaultValue: f.DefaultValue,
		Options:      slices.Clone(f.Options),
	}
	if df.Key == "" {
		return DialogField{}, "", false
	}
	var diag string
	if o.Kind != "" {
		df.Kind, diag = resolveKind(o.Kind)
	}
	if o.DefaultValue != nil {
		df.DefaultValue = o.DefaultValue
	}
	if len(o.Options) > 0 {
		df.Options = slices.Clone(o.Options)
	}
	return df, diag, true
}

func placeholder(index int) SearchField {
	return SearchField{
		Key:      fmt.Sprintf("_invalid_%d", index),
		Title:    ConfigErrorTitle,
		Kind:     KindInput,
		Position: PositionPrimary,
		Invalid:  true,
	}
}

// pick copies the named attributes out of extra.
func pick(extra map[string]any, keys []string) map[string]any {
	if len(keys) == 0 || len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := extra[k]; ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
