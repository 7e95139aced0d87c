package field

// Descriptor is the unit of configuration: one logical data attribute and how
// it is presented on the search panel, the data table and the dialog form.
type Descriptor struct {
	// Key identifies the attribute. Unique within whichever partition consumes it.
	Key string `yaml:"key" json:"key"`

	// Title is the display label, or a translation key when a locale catalog is used.
	Title string `yaml:"title,omitempty" json:"title,omitempty"`

	// Kind is the input type. Defaults to "input".
	Kind Kind `yaml:"type,omitempty" json:"type,omitempty"`

	// Options lists choices for select-like kinds.
	Options []Option `yaml:"options,omitempty" json:"options,omitempty"`

	// Mode is passed to select-like inputs (e.g. "multiple", "tags").
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Align is the table cell alignment. Defaults to "center".
	Align Align `yaml:"align,omitempty" json:"align,omitempty"`

	// Sort marks the column as sortable.
	Sort bool `yaml:"sort,omitempty" json:"sort,omitempty"`

	// DefaultValue seeds search and dialog inputs.
	DefaultValue any `yaml:"default_value,omitempty" json:"defaultValue,omitempty"`

	// DefaultFilterValue seeds the table column filter.
	DefaultFilterValue any `yaml:"default_filter_value,omitempty" json:"defaultFilterValue,omitempty"`

	// DefaultSortsValue seeds the table sort for this column.
	DefaultSortsValue SortOrder `yaml:"default_sorts_value,omitempty" json:"defaultSortsValue,omitempty"`

	// SortOrder is the precedence of the default sort. Lower sorts first.
	SortOrder *int `yaml:"sort_order,omitempty" json:"sortOrder,omitempty"`

	// UserKey names Extra attributes that are copied onto the search field.
	UserKey []string `yaml:"user_key,omitempty" json:"userKey,omitempty"`

	// Children are nested fields carried onto the search field unchanged.
	Children []Descriptor `yaml:"children,omitempty" json:"children,omitempty"`

	Search Surface[SearchOverride] `yaml:"search,omitempty" json:"search,omitempty"`
	Table  Surface[TableOverride]  `yaml:"table,omitempty" json:"table,omitempty"`
	Dialog Surface[DialogOverride] `yaml:"dialog,omitempty" json:"dialog,omitempty"`

	// Extra holds attributes unknown to this package, passed through unmodified.
	Extra map[string]any `yaml:",inline" json:"extra,omitempty"`
}

// SearchOverride customizes a field on the search panel.
type SearchOverride struct {
	Key          string   `yaml:"key,omitempty" json:"key,omitempty"`
	Title        string   `yaml:"title,omitempty" json:"title,omitempty"`
	Kind         Kind     `yaml:"type,omitempty" json:"type,omitempty"`
	Position     Position `yaml:"position,omitempty" json:"position,omitempty"`
	DefaultValue any      `yaml:"default_value,omitempty" json:"defaultValue,omitempty"`
	Options      []Option `yaml:"options,omitempty" json:"options,omitempty"`
	Mode         string   `yaml:"mode,omitempty" json:"mode,omitempty"`
	Placeholder  string   `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
}

// TableOverride customizes a field's table column.
type TableOverride struct {
	Title              string    `yaml:"title,omitempty" json:"title,omitempty"`
	Align              Align     `yaml:"align,omitempty" json:"align,omitempty"`
	Width              int       `yaml:"width,omitempty" json:"width,omitempty"`
	Sort               *bool     `yaml:"sort,omitempty" json:"sort,omitempty"`
	DefaultFilterValue any       `yaml:"default_filter_value,omitempty" json:"defaultFilterValue,omitempty"`
	DefaultSortsValue  SortOrder `yaml:"default_sorts_value,omitempty" json:"defaultSortsValue,omitempty"`
	SortOrder          *int      `yaml:"sort_order,omitempty" json:"sortOrder,omitempty"`
	Ellipsis           bool      `yaml:"ellipsis,omitempty" json:"ellipsis,omitempty"`
}

// DialogOverride customizes a field on the create/edit dialog.
type DialogOverride struct {
	Key          string   `yaml:"key,omitempty" json:"key,omitempty"`
	Title        string   `yaml:"title,omitempty" json:"title,omitempty"`
	Kind         Kind     `yaml:"type,omitempty" json:"type,omitempty"`
	Required     bool     `yaml:"required,omitempty" json:"required,omitempty"`
	DefaultValue any      `yaml:"default_value,omitempty" json:"defaultValue,omitempty"`
	Options      []Option `yaml:"options,omitempty" json:"options,omitempty"`
	ReadOnly     bool     `yaml:"readonly,omitempty" json:"readonly,omitempty"`
}

// Option is one choice of a select-like input.
type Option struct {
	Label string `yaml:"label" json:"label"`
	Value any    `yaml:"value" json:"value"`
}

// Kind is the input type of a field.
type Kind string

const (
	KindInput      Kind = "input"
	KindTextarea   Kind = "textarea"
	KindNumber     Kind = "number"
	KindPassword   Kind = "password"
	KindSelect     Kind = "select"
	KindRadio      Kind = "radio"
	KindCheckbox   Kind = "checkbox"
	KindSwitch     Kind = "switch"
	KindDate       Kind = "date"
	KindDateRange  Kind = "date-range"
	KindTime       Kind = "time"
	KindCascader   Kind = "cascader"
	KindTreeSelect Kind = "tree-select"
	KindUpload     Kind = "upload"
	KindCustom     Kind = "custom"
)

// Kinds lists every known input type.
var Kinds = []Kind{
	KindInput, KindTextarea, KindNumber, KindPassword,
	KindSelect, KindRadio, KindCheckbox, KindSwitch,
	KindDate, KindDateRange, KindTime,
	KindCascader, KindTreeSelect, KindUpload, KindCustom,
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Position places a search field on the primary panel or the overflow panel.
type Position string

const (
	PositionPrimary Position = "primary"
	PositionMore    Position = "more"
)

// Align is a table cell alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// SortOrder is a sort direction.
type SortOrder string

const (
	Ascend  SortOrder = "ascend"
	Descend SortOrder = "descend"
)

// IsValid reports whether o is a known direction.
func (o SortOrder) IsValid() bool {
	return o == Ascend || o == Descend
}

// IntPtr returns a pointer to v, for literal SortOrder values.
func IntPtr(v int) *int {
	return &v
}
