package widget

import "encoding/json"

// Layouts used for date-like values on the wire.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	TimeLayout     = "15:04:05"
)

// Content is the variant payload of a widget.
// It is implemented only by the pointer types declared in this package.
type Content interface {
	Kind() Kind
	Accept(v Visitor)
}

// TextInput is a single-line free text field.
type TextInput struct {
	Label        string           `json:"label"`
	Value        Optional[string] `json:"value"`
	Placeholder  string           `json:"placeholder,omitempty"`
	DefaultValue Optional[string] `json:"defaultValue,omitzero"`
	Required     bool             `json:"required,omitempty"`
	Disabled     bool             `json:"disabled,omitempty"`
	MaxLength    Optional[int]    `json:"maxLength,omitzero"`
	MinLength    Optional[int]    `json:"minLength,omitzero"`
}

// TextArea is a multi-line free text field.
type TextArea struct {
	Label        string           `json:"label"`
	Value        Optional[string] `json:"value"`
	Placeholder  string           `json:"placeholder,omitempty"`
	DefaultValue Optional[string] `json:"defaultValue,omitzero"`
	Required     bool             `json:"required,omitempty"`
	Disabled     bool             `json:"disabled,omitempty"`
	MaxLength    Optional[int]    `json:"maxLength,omitzero"`
	MinLength    Optional[int]    `json:"minLength,omitzero"`
	MaxLines     Optional[int]    `json:"maxLines,omitzero"`
	MinLines     Optional[int]    `json:"minLines,omitzero"`
	AutoResize   bool             `json:"autoResize,omitempty"`
}

// NumberInput is a numeric field.
type NumberInput struct {
	Label        string            `json:"label"`
	Value        Optional[float64] `json:"value"`
	Placeholder  string            `json:"placeholder,omitempty"`
	DefaultValue Optional[float64] `json:"defaultValue,omitzero"`
	Required     bool              `json:"required,omitempty"`
	Disabled     bool              `json:"disabled,omitempty"`
	MaxValue     Optional[float64] `json:"maxValue,omitzero"`
	MinValue     Optional[float64] `json:"minValue,omitzero"`
}

// DateInput holds a calendar date in DateLayout.
type DateInput struct {
	Label        string           `json:"label"`
	Value        Optional[string] `json:"value"`
	Placeholder  string           `json:"placeholder,omitempty"`
	DefaultValue Optional[string] `json:"defaultValue,omitzero"`
	Required     bool             `json:"required,omitempty"`
	Disabled     bool             `json:"disabled,omitempty"`
	Format       string           `json:"format,omitempty"`
	MaxValue     Optional[string] `json:"maxValue,omitzero"`
	MinValue     Optional[string] `json:"minValue,omitzero"`
	Location     string           `json:"location,omitempty"`
}

// DateTimeInput holds a date and time of day in DateTimeLayout.
type DateTimeInput struct {
	Label        string           `json:"label"`
	Value        Optional[string] `json:"value"`
	Placeholder  string           `json:"placeholder,omitempty"`
	DefaultValue Optional[string] `json:"defaultValue,omitzero"`
	Required     bool             `json:"required,omitempty"`
	Disabled     bool             `json:"disabled,omitempty"`
	Format       string           `json:"format,omitempty"`
	MaxValue     Optional[string] `json:"maxValue,omitzero"`
	MinValue     Optional[string] `json:"minValue,omitzero"`
	Location     string           `json:"location,omitempty"`
}

// TimeInput holds a time of day in TimeLayout. It has no range constraints.
type TimeInput struct {
	Label        string           `json:"label"`
	Value        Optional[string] `json:"value"`
	Placeholder  string           `json:"placeholder,omitempty"`
	DefaultValue Optional[string] `json:"defaultValue,omitzero"`
	Required     bool             `json:"required,omitempty"`
	Disabled     bool             `json:"disabled,omitempty"`
	Location     string           `json:"location,omitempty"`
}

// Selectbox selects at most one option by index.
type Selectbox struct {
	Label        string        `json:"label"`
	Value        Optional[int] `json:"value"`
	Options      []string      `json:"options"`
	Placeholder  string        `json:"placeholder,omitempty"`
	DefaultValue Optional[int] `json:"defaultValue,omitzero"`
	Required     bool          `json:"required,omitempty"`
	Disabled     bool          `json:"disabled,omitempty"`
}

// MultiSelect selects any number of options by index.
type MultiSelect struct {
	Label        string   `json:"label"`
	Value        []int    `json:"value"`
	Options      []string `json:"options"`
	Placeholder  string   `json:"placeholder,omitempty"`
	DefaultValue []int    `json:"defaultValue,omitempty"`
	Required     bool     `json:"required,omitempty"`
	Disabled     bool     `json:"disabled,omitempty"`
}

// Radio selects exactly one option by index once touched.
type Radio struct {
	Label        string        `json:"label"`
	Value        Optional[int] `json:"value"`
	Options      []string      `json:"options"`
	DefaultValue Optional[int] `json:"defaultValue,omitzero"`
	Required     bool          `json:"required,omitempty"`
	Disabled     bool          `json:"disabled,omitempty"`
}

// Checkbox is a single boolean.
type Checkbox struct {
	Label        string `json:"label"`
	Value        bool   `json:"value"`
	DefaultValue bool   `json:"defaultValue,omitempty"`
	Required     bool   `json:"required,omitempty"`
	Disabled     bool   `json:"disabled,omitempty"`
}

// CheckboxGroup selects any number of options by index.
type CheckboxGroup struct {
	Label        string   `json:"label"`
	Value        []int    `json:"value"`
	Options      []string `json:"options"`
	DefaultValue []int    `json:"defaultValue,omitempty"`
	Required     bool     `json:"required,omitempty"`
	Disabled     bool     `json:"disabled,omitempty"`
}

// Button is true only during the pass triggered by its click.
type Button struct {
	Label    string `json:"label"`
	Value    bool   `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Markdown renders static text.
type Markdown struct {
	Body string `json:"body"`
}

// RowSelection controls how many table rows can be selected.
type RowSelection string

const (
	RowSelectionNone     RowSelection = ""
	RowSelectionSingle   RowSelection = "single"
	RowSelectionMultiple RowSelection = "multiple"
)

// SelectAction controls what a table selection does.
type SelectAction string

const (
	SelectActionIgnore SelectAction = "ignore"
	SelectActionRerun  SelectAction = "rerun"
)

// TableSelection is the selected row(s) of a table.
type TableSelection struct {
	Row  int   `json:"row"`
	Rows []int `json:"rows,omitempty"`
}

// TableValue is the committed state of a table.
type TableValue struct {
	Selection *TableSelection `json:"selection,omitempty"`
}

// Table displays rows of data and optionally lets the user select them.
type Table struct {
	Data         json.RawMessage `json:"data"`
	Header       string          `json:"header,omitempty"`
	Description  string          `json:"description,omitempty"`
	Height       Optional[int]   `json:"height,omitzero"`
	ColumnOrder  []string        `json:"columnOrder,omitempty"`
	OnSelect     SelectAction    `json:"onSelect,omitempty"`
	RowSelection RowSelection    `json:"rowSelection,omitempty"`
	Value        TableValue      `json:"value"`
}

// Columns lays out its ColumnItem children side by side.
type Columns struct {
	Columns int `json:"columns"`
}

// ColumnItem is one column of a Columns container.
type ColumnItem struct {
	Weight float64 `json:"weight"`
}

// Form buffers the values of its children until its submit button is pressed.
// Value is the submit flag.
type Form struct {
	ButtonLabel    string `json:"buttonLabel"`
	Value          bool   `json:"value"`
	ButtonDisabled bool   `json:"buttonDisabled,omitempty"`
	ClearOnSubmit  bool   `json:"clearOnSubmit,omitempty"`
}

func (*TextInput) Kind() Kind     { return KindTextInput }
func (*TextArea) Kind() Kind      { return KindTextArea }
func (*NumberInput) Kind() Kind   { return KindNumberInput }
func (*DateInput) Kind() Kind     { return KindDateInput }
func (*DateTimeInput) Kind() Kind { return KindDateTimeInput }
func (*TimeInput) Kind() Kind     { return KindTimeInput }
func (*Selectbox) Kind() Kind     { return KindSelectbox }
func (*MultiSelect) Kind() Kind   { return KindMultiSelect }
func (*Radio) Kind() Kind         { return KindRadio }
func (*Checkbox) Kind() Kind      { return KindCheckbox }
func (*CheckboxGroup) Kind() Kind { return KindCheckboxGroup }
func (*Button) Kind() Kind        { return KindButton }
func (*Markdown) Kind() Kind      { return KindMarkdown }
func (*Table) Kind() Kind         { return KindTable }
func (*Columns) Kind() Kind       { return KindColumns }
func (*ColumnItem) Kind() Kind    { return KindColumnItem }
func (*Form) Kind() Kind          { return KindForm }
