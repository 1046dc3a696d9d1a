package ui

import "github.com/trysourcetool/sourcetool/pkg/widget"

// TextInputOptions configures TextInput. A nil pointer means defaults.
type TextInputOptions struct {
	Placeholder  string
	DefaultValue widget.Optional[string]
	Required     bool
	Disabled     bool
	MaxLength    widget.Optional[int]
	MinLength    widget.Optional[int]
}

// TextAreaOptions configures TextArea.
type TextAreaOptions struct {
	Placeholder  string
	DefaultValue widget.Optional[string]
	Required     bool
	Disabled     bool
	MaxLength    widget.Optional[int]
	MinLength    widget.Optional[int]
	MaxLines     widget.Optional[int]
	MinLines     widget.Optional[int]
	AutoResize   bool
}

// NumberInputOptions configures NumberInput.
type NumberInputOptions struct {
	Placeholder  string
	DefaultValue widget.Optional[float64]
	Required     bool
	Disabled     bool
	MaxValue     widget.Optional[float64]
	MinValue     widget.Optional[float64]
}

// DateInputOptions configures DateInput and DateTimeInput.
// Defaults and bounds are strings in the widget's layout.
type DateInputOptions struct {
	Placeholder  string
	DefaultValue widget.Optional[string]
	Required     bool
	Disabled     bool
	Format       string
	MaxValue     widget.Optional[string]
	MinValue     widget.Optional[string]
	Location     string
}

// TimeInputOptions configures TimeInput.
type TimeInputOptions struct {
	Placeholder  string
	DefaultValue widget.Optional[string]
	Required     bool
	Disabled     bool
	Location     string
}

// SelectboxOptions configures Selectbox and Radio. DefaultValue names an option.
type SelectboxOptions struct {
	Options      []string
	Placeholder  string
	DefaultValue widget.Optional[string]
	Required     bool
	Disabled     bool
}

// MultiSelectOptions configures MultiSelect and CheckboxGroup. DefaultValue names options.
type MultiSelectOptions struct {
	Options      []string
	Placeholder  string
	DefaultValue []string
	Required     bool
	Disabled     bool
}

// CheckboxOptions configures Checkbox.
type CheckboxOptions struct {
	DefaultValue bool
	Required     bool
	Disabled     bool
}

// ButtonOptions configures Button.
type ButtonOptions struct {
	Disabled bool
}

// TableOptions configures Table.
type TableOptions struct {
	Header       string
	Description  string
	Height       widget.Optional[int]
	ColumnOrder  []string
	// OnSelect defaults to SelectActionRerun.
	OnSelect     widget.SelectAction
	RowSelection widget.RowSelection
}

// ColumnsOptions configures Columns. Missing weights default to 1.
type ColumnsOptions struct {
	Weights []float64
}

// FormOptions configures Form.
type FormOptions struct {
	ButtonDisabled bool
	ClearOnSubmit  bool
}

// Selection is a chosen option.
type Selection struct {
	Index int
	Value string
}

func orDefault[T any](opts *T) *T {
	if opts == nil {
		return new(T)
	}
	return opts
}
