package ui

import (
	"slices"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Selectbox declares a dropdown and returns the selected option.
func (b *UIBuilder) Selectbox(label string, opts *SelectboxOptions) widget.Optional[Selection] {
	o := orDefault(opts)
	c := &widget.Selectbox{
		Label:        label,
		Options:      slices.Clone(o.Options),
		Placeholder:  o.Placeholder,
		DefaultValue: indexOf(o.Options, o.DefaultValue),
		Required:     o.Required,
		Disabled:     o.Disabled,
	}
	if w, _ := b.place(c); w == nil {
		return widget.None[Selection]()
	}
	return selection(c.Options, c.Value)
}

// Radio declares a radio group and returns the selected option.
func (b *UIBuilder) Radio(label string, opts *SelectboxOptions) widget.Optional[Selection] {
	o := orDefault(opts)
	c := &widget.Radio{
		Label:        label,
		Options:      slices.Clone(o.Options),
		DefaultValue: indexOf(o.Options, o.DefaultValue),
		Required:     o.Required,
		Disabled:     o.Disabled,
	}
	if w, _ := b.place(c); w == nil {
		return widget.None[Selection]()
	}
	return selection(c.Options, c.Value)
}

// MultiSelect declares a multi-value dropdown and returns the selected options in option order.
func (b *UIBuilder) MultiSelect(label string, opts *MultiSelectOptions) []Selection {
	o := orDefault(opts)
	c := &widget.MultiSelect{
		Label:        label,
		Options:      slices.Clone(o.Options),
		Placeholder:  o.Placeholder,
		DefaultValue: indicesOf(o.Options, o.DefaultValue),
		Required:     o.Required,
		Disabled:     o.Disabled,
	}
	if w, _ := b.place(c); w == nil {
		return nil
	}
	return selections(c.Options, c.Value)
}

// CheckboxGroup declares a set of checkboxes and returns the checked options.
func (b *UIBuilder) CheckboxGroup(label string, opts *MultiSelectOptions) []Selection {
	o := orDefault(opts)
	c := &widget.CheckboxGroup{
		Label:        label,
		Options:      slices.Clone(o.Options),
		DefaultValue: indicesOf(o.Options, o.DefaultValue),
		Required:     o.Required,
		Disabled:     o.Disabled,
	}
	if w, _ := b.place(c); w == nil {
		return nil
	}
	return selections(c.Options, c.Value)
}

// Checkbox declares a single checkbox.
func (b *UIBuilder) Checkbox(label string, opts *CheckboxOptions) bool {
	o := orDefault(opts)
	c := &widget.Checkbox{
		Label:        label,
		DefaultValue: o.DefaultValue,
		Required:     o.Required,
		Disabled:     o.Disabled,
	}
	if w, _ := b.place(c); w == nil {
		return false
	}
	return c.Value
}

func indexOf(options []string, v widget.Optional[string]) widget.Optional[int] {
	s, ok := v.Get()
	if !ok {
		return widget.None[int]()
	}
	if i := slices.Index(options, s); i >= 0 {
		return widget.Some(i)
	}
	return widget.None[int]()
}

func indicesOf(options, values []string) []int {
	var out []int
	for i, opt := range options {
		if slices.Contains(values, opt) {
			out = append(out, i)
		}
	}
	return out
}

func selection(options []string, v widget.Optional[int]) widget.Optional[Selection] {
	i, ok := v.Get()
	if !ok || i < 0 || i >= len(options) {
		return widget.None[Selection]()
	}
	return widget.Some(Selection{Index: i, Value: options[i]})
}

func selections(options []string, idx []int) []Selection {
	sorted := slices.Clone(idx)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	out := make([]Selection, 0, len(sorted))
	for _, i := range sorted {
		if i >= 0 && i < len(options) {
			out = append(out, Selection{Index: i, Value: options[i]})
		}
	}
	return out
}
