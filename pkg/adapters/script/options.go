package script

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/trysourcetool/sourcetool/pkg/ui"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Script-side option objects. Pointers distinguish "absent" from zero values.

type textOptions struct {
	Placeholder  string  `mapstructure:"placeholder"`
	DefaultValue *string `mapstructure:"defaultValue"`
	Required     bool    `mapstructure:"required"`
	Disabled     bool    `mapstructure:"disabled"`
	MaxLength    *int    `mapstructure:"maxLength"`
	MinLength    *int    `mapstructure:"minLength"`
	MaxLines     *int    `mapstructure:"maxLines"`
	MinLines     *int    `mapstructure:"minLines"`
	AutoResize   bool    `mapstructure:"autoResize"`
}

type numberOptions struct {
	Placeholder  string   `mapstructure:"placeholder"`
	DefaultValue *float64 `mapstructure:"defaultValue"`
	Required     bool     `mapstructure:"required"`
	Disabled     bool     `mapstructure:"disabled"`
	MaxValue     *float64 `mapstructure:"maxValue"`
	MinValue     *float64 `mapstructure:"minValue"`
}

type dateOptions struct {
	Placeholder  string  `mapstructure:"placeholder"`
	DefaultValue *string `mapstructure:"defaultValue"`
	Required     bool    `mapstructure:"required"`
	Disabled     bool    `mapstructure:"disabled"`
	Format       string  `mapstructure:"format"`
	MaxValue     *string `mapstructure:"maxValue"`
	MinValue     *string `mapstructure:"minValue"`
	Location     string  `mapstructure:"location"`
}

type choiceOptions struct {
	Options      []string `mapstructure:"options"`
	Placeholder  string   `mapstructure:"placeholder"`
	DefaultValue any      `mapstructure:"defaultValue"`
	Required     bool     `mapstructure:"required"`
	Disabled     bool     `mapstructure:"disabled"`
}

type checkboxOptions struct {
	DefaultValue bool `mapstructure:"defaultValue"`
	Required     bool `mapstructure:"required"`
	Disabled     bool `mapstructure:"disabled"`
}

type buttonOptions struct {
	Disabled bool `mapstructure:"disabled"`
}

type tableOptions struct {
	Header       string   `mapstructure:"header"`
	Description  string   `mapstructure:"description"`
	Height       *int     `mapstructure:"height"`
	ColumnOrder  []string `mapstructure:"columnOrder"`
	OnSelect     string   `mapstructure:"onSelect"`
	RowSelection string   `mapstructure:"rowSelection"`
}

type columnsOptions struct {
	Weights []float64 `mapstructure:"weights"`
}

type formOptions struct {
	ButtonDisabled bool `mapstructure:"buttonDisabled"`
	ClearOnSubmit  bool `mapstructure:"clearOnSubmit"`
}

// decode fills out from an exported script value. nil leaves out untouched.
func decode(in any, out any) error {
	if in == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

func optional[T any](p *T) widget.Optional[T] {
	if p == nil {
		return widget.None[T]()
	}
	return widget.Some(*p)
}

func (o textOptions) textInput() *ui.TextInputOptions {
	return &ui.TextInputOptions{
		Placeholder:  o.Placeholder,
		DefaultValue: optional(o.DefaultValue),
		Required:     o.Required,
		Disabled:     o.Disabled,
		MaxLength:    optional(o.MaxLength),
		MinLength:    optional(o.MinLength),
	}
}

func (o textOptions) textArea() *ui.TextAreaOptions {
	return &ui.TextAreaOptions{
		Placeholder:  o.Placeholder,
		DefaultValue: optional(o.DefaultValue),
		Required:     o.Required,
		Disabled:     o.Disabled,
		MaxLength:    optional(o.MaxLength),
		MinLength:    optional(o.MinLength),
		MaxLines:     optional(o.MaxLines),
		MinLines:     optional(o.MinLines),
		AutoResize:   o.AutoResize,
	}
}

func (o numberOptions) ui() *ui.NumberInputOptions {
	return &ui.NumberInputOptions{
		Placeholder:  o.Placeholder,
		DefaultValue: optional(o.DefaultValue),
		Required:     o.Required,
		Disabled:     o.Disabled,
		MaxValue:     optional(o.MaxValue),
		MinValue:     optional(o.MinValue),
	}
}

func (o dateOptions) date() *ui.DateInputOptions {
	return &ui.DateInputOptions{
		Placeholder:  o.Placeholder,
		DefaultValue: optional(o.DefaultValue),
		Required:     o.Required,
		Disabled:     o.Disabled,
		Format:       o.Format,
		MaxValue:     optional(o.MaxValue),
		MinValue:     optional(o.MinValue),
		Location:     o.Location,
	}
}

func (o dateOptions) timeOfDay() *ui.TimeInputOptions {
	return &ui.TimeInputOptions{
		Placeholder:  o.Placeholder,
		DefaultValue: optional(o.DefaultValue),
		Required:     o.Required,
		Disabled:     o.Disabled,
		Location:     o.Location,
	}
}

func (o choiceOptions) single() (*ui.SelectboxOptions, error) {
	out := &ui.SelectboxOptions{
		Options:     o.Options,
		Placeholder: o.Placeholder,
		Required:    o.Required,
		Disabled:    o.Disabled,
	}
	switch v := o.DefaultValue.(type) {
	case nil:
	case string:
		out.DefaultValue = widget.Some(v)
	default:
		return nil, fmt.Errorf("defaultValue must be a string, got %T", v)
	}
	return out, nil
}

func (o choiceOptions) multiple() (*ui.MultiSelectOptions, error) {
	out := &ui.MultiSelectOptions{
		Options:     o.Options,
		Placeholder: o.Placeholder,
		Required:    o.Required,
		Disabled:    o.Disabled,
	}
	if o.DefaultValue != nil {
		if err := decode(o.DefaultValue, &out.DefaultValue); err != nil {
			return nil, fmt.Errorf("defaultValue must be a list of strings: %w", err)
		}
	}
	return out, nil
}

func (o tableOptions) ui() (*ui.TableOptions, error) {
	out := &ui.TableOptions{
		Header:       o.Header,
		Description:  o.Description,
		Height:       optional(o.Height),
		ColumnOrder:  o.ColumnOrder,
		OnSelect:     widget.SelectAction(o.OnSelect),
		RowSelection: widget.RowSelection(o.RowSelection),
	}
	switch out.OnSelect {
	case "", widget.SelectActionIgnore, widget.SelectActionRerun:
	default:
		return nil, fmt.Errorf("unknown onSelect %q", o.OnSelect)
	}
	switch out.RowSelection {
	case widget.RowSelectionNone, widget.RowSelectionSingle, widget.RowSelectionMultiple:
	default:
		return nil, fmt.Errorf("unknown rowSelection %q", o.RowSelection)
	}
	return out, nil
}
