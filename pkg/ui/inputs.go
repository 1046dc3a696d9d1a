package ui

import (
	"time"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// TextInput declares a single-line text field and returns its value, or "" if unset.
func (b *UIBuilder) TextInput(label string, opts *TextInputOptions) string {
	o := orDefault(opts)
	c := &widget.TextInput{
		Label:        label,
		Placeholder:  o.Placeholder,
		DefaultValue: o.DefaultValue,
		Required:     o.Required,
		Disabled:     o.Disabled,
		MaxLength:    o.MaxLength,
		MinLength:    o.MinLength,
	}
	if w, _ := b.place(c); w == nil {
		return ""
	}
	return c.Value.OrElse("")
}

// TextArea declares a multi-line text field and returns its value, or "" if unset.
func (b *UIBuilder) TextArea(label string, opts *TextAreaOptions) string {
	o := orDefault(opts)
	c := &widget.TextArea{
		Label:        label,
		Placeholder:  o.Placeholder,
		DefaultValue: o.DefaultValue,
		Required:     o.Required,
		Disabled:     o.Disabled,
		MaxLength:    o.MaxLength,
		MinLength:    o.MinLength,
		MaxLines:     o.MaxLines,
		MinLines:     o.MinLines,
		AutoResize:   o.AutoResize,
	}
	if w, _ := b.place(c); w == nil {
		return ""
	}
	return c.Value.OrElse("")
}

// NumberInput declares a numeric field.
func (b *UIBuilder) NumberInput(label string, opts *NumberInputOptions) widget.Optional[float64] {
	o := orDefault(opts)
	c := &widget.NumberInput{
		Label:        label,
		Placeholder:  o.Placeholder,
		DefaultValue: o.DefaultValue,
		Required:     o.Required,
		Disabled:     o.Disabled,
		MaxValue:     o.MaxValue,
		MinValue:     o.MinValue,
	}
	if w, _ := b.place(c); w == nil {
		return widget.None[float64]()
	}
	return c.Value
}

// DateInput declares a date field. The value is midnight in the widget's location.
func (b *UIBuilder) DateInput(label string, opts *DateInputOptions) widget.Optional[time.Time] {
	o := orDefault(opts)
	c := &widget.DateInput{
		Label:        label,
		Placeholder:  o.Placeholder,
		DefaultValue: o.DefaultValue,
		Required:     o.Required,
		Disabled:     o.Disabled,
		Format:       o.Format,
		MaxValue:     o.MaxValue,
		MinValue:     o.MinValue,
		Location:     o.Location,
	}
	w, _ := b.place(c)
	if w == nil {
		return widget.None[time.Time]()
	}
	return parseTime(c.Value, widget.DateLayout, c.Location)
}

// DateTimeInput declares a date and time field.
func (b *UIBuilder) DateTimeInput(label string, opts *DateInputOptions) widget.Optional[time.Time] {
	o := orDefault(opts)
	c := &widget.DateTimeInput{
		Label:        label,
		Placeholder:  o.Placeholder,
		DefaultValue: o.DefaultValue,
		Required:     o.Required,
		Disabled:     o.Disabled,
		Format:       o.Format,
		MaxValue:     o.MaxValue,
		MinValue:     o.MinValue,
		Location:     o.Location,
	}
	w, _ := b.place(c)
	if w == nil {
		return widget.None[time.Time]()
	}
	return parseTime(c.Value, widget.DateTimeLayout, c.Location)
}

// TimeInput declares a time of day field. The date part of the value is zero.
func (b *UIBuilder) TimeInput(label string, opts *TimeInputOptions) widget.Optional[time.Time] {
	o := orDefault(opts)
	c := &widget.TimeInput{
		Label:        label,
		Placeholder:  o.Placeholder,
		DefaultValue: o.DefaultValue,
		Required:     o.Required,
		Disabled:     o.Disabled,
		Location:     o.Location,
	}
	w, _ := b.place(c)
	if w == nil {
		return widget.None[time.Time]()
	}
	return parseTime(c.Value, widget.TimeLayout, c.Location)
}

func parseTime(v widget.Optional[string], layout, location string) widget.Optional[time.Time] {
	s, ok := v.Get()
	if !ok || s == "" {
		return widget.None[time.Time]()
	}
	loc := time.Local
	if location != "" {
		if l, err := time.LoadLocation(location); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return widget.None[time.Time]()
	}
	return widget.Some(t)
}
