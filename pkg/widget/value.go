package widget

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
)

// SetValue applies a user-supplied value to c in place.
// Accepted Go types depend on the variant; nil always means "unset".
func SetValue(c Content, v any) error {
	switch c := c.(type) {
	case *TextInput:
		s, err := toOptionalString(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = s
	case *TextArea:
		s, err := toOptionalString(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = s
	case *NumberInput:
		n, err := toOptionalFloat(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = n
	case *DateInput:
		s, err := toOptionalTime(c.Kind(), v, DateLayout)
		if err != nil {
			return err
		}
		c.Value = s
	case *DateTimeInput:
		s, err := toOptionalTime(c.Kind(), v, DateTimeLayout)
		if err != nil {
			return err
		}
		c.Value = s
	case *TimeInput:
		s, err := toOptionalTime(c.Kind(), v, TimeLayout)
		if err != nil {
			return err
		}
		c.Value = s
	case *Selectbox:
		i, err := toOptionalIndex(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = i
	case *Radio:
		i, err := toOptionalIndex(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = i
	case *MultiSelect:
		idx, err := toIndices(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = idx
	case *CheckboxGroup:
		idx, err := toIndices(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = idx
	case *Checkbox:
		b, err := toBool(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = b
	case *Button:
		b, err := toBool(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = b
	case *Form:
		b, err := toBool(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = b
	case *Table:
		tv, err := toTableValue(c.Kind(), v)
		if err != nil {
			return err
		}
		c.Value = tv
	case *Markdown, *Columns, *ColumnItem:
		return &ValueError{Kind: c.Kind(), Value: v, Reason: "widget has no value"}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownKind, c)
	}
	return nil
}

// ValueOf returns the committed value of c, or nil for variants without one.
func ValueOf(c Content) any {
	switch c := c.(type) {
	case *TextInput:
		return c.Value
	case *TextArea:
		return c.Value
	case *NumberInput:
		return c.Value
	case *DateInput:
		return c.Value
	case *DateTimeInput:
		return c.Value
	case *TimeInput:
		return c.Value
	case *Selectbox:
		return c.Value
	case *Radio:
		return c.Value
	case *MultiSelect:
		return slices.Clone(c.Value)
	case *CheckboxGroup:
		return slices.Clone(c.Value)
	case *Checkbox:
		return c.Value
	case *Button:
		return c.Value
	case *Form:
		return c.Value
	case *Table:
		return c.Value.Clone()
	}
	return nil
}

// CopyValue copies the committed value of src into dst. Both must be the same variant.
func CopyValue(dst, src Content) error {
	if dst == nil || src == nil {
		return fmt.Errorf("%w: nil content", ErrKindMismatch)
	}
	if dst.Kind() != src.Kind() {
		return fmt.Errorf("%w: %s <- %s", ErrKindMismatch, dst.Kind(), src.Kind())
	}
	switch d := dst.(type) {
	case *TextInput:
		d.Value = src.(*TextInput).Value
	case *TextArea:
		d.Value = src.(*TextArea).Value
	case *NumberInput:
		d.Value = src.(*NumberInput).Value
	case *DateInput:
		d.Value = src.(*DateInput).Value
	case *DateTimeInput:
		d.Value = src.(*DateTimeInput).Value
	case *TimeInput:
		d.Value = src.(*TimeInput).Value
	case *Selectbox:
		d.Value = src.(*Selectbox).Value
	case *Radio:
		d.Value = src.(*Radio).Value
	case *MultiSelect:
		d.Value = slices.Clone(src.(*MultiSelect).Value)
	case *CheckboxGroup:
		d.Value = slices.Clone(src.(*CheckboxGroup).Value)
	case *Checkbox:
		d.Value = src.(*Checkbox).Value
	case *Button:
		d.Value = src.(*Button).Value
	case *Form:
		d.Value = src.(*Form).Value
	case *Table:
		d.Value = src.(*Table).Value.Clone()
	case *Markdown, *Columns, *ColumnItem:
	default:
		return fmt.Errorf("%w: %T", ErrUnknownKind, dst)
	}
	return nil
}

// CarryValue moves the committed value of previous onto a freshly declared widget of the
// same variant. Option indices that no longer fit the declared options fall back to the
// declared default.
func CarryValue(declared, previous Content) {
	if err := CopyValue(declared, previous); err != nil {
		return
	}
	switch d := declared.(type) {
	case *Selectbox:
		if i, ok := d.Value.Get(); ok && !inRange(i, len(d.Options)) {
			d.Value = d.DefaultValue
		}
	case *Radio:
		if i, ok := d.Value.Get(); ok && !inRange(i, len(d.Options)) {
			d.Value = d.DefaultValue
		}
	case *MultiSelect:
		if !allInRange(d.Value, len(d.Options)) {
			d.Value = slices.Clone(d.DefaultValue)
		}
	case *CheckboxGroup:
		if !allInRange(d.Value, len(d.Options)) {
			d.Value = slices.Clone(d.DefaultValue)
		}
	}
}

// ResetValue puts c back to its declared default.
func ResetValue(c Content) {
	if c != nil {
		c.Accept(resetter{})
	}
}

// ResetMomentary clears the value of buttons and forms, which are only true for the
// pass they triggered. Other variants are left untouched.
func ResetMomentary(c Content) {
	switch c := c.(type) {
	case *Button:
		c.Value = false
	case *Form:
		c.Value = false
	}
}

type resetter struct{}

func (resetter) VisitTextInput(c *TextInput)         { c.Value = c.DefaultValue }
func (resetter) VisitTextArea(c *TextArea)           { c.Value = c.DefaultValue }
func (resetter) VisitNumberInput(c *NumberInput)     { c.Value = c.DefaultValue }
func (resetter) VisitDateInput(c *DateInput)         { c.Value = c.DefaultValue }
func (resetter) VisitDateTimeInput(c *DateTimeInput) { c.Value = c.DefaultValue }
func (resetter) VisitTimeInput(c *TimeInput)         { c.Value = c.DefaultValue }
func (resetter) VisitSelectbox(c *Selectbox)         { c.Value = c.DefaultValue }
func (resetter) VisitRadio(c *Radio)                 { c.Value = c.DefaultValue }
func (resetter) VisitMultiSelect(c *MultiSelect)     { c.Value = slices.Clone(c.DefaultValue) }
func (resetter) VisitCheckboxGroup(c *CheckboxGroup) { c.Value = slices.Clone(c.DefaultValue) }
func (resetter) VisitCheckbox(c *Checkbox)           { c.Value = c.DefaultValue }
func (resetter) VisitButton(c *Button)               { c.Value = false }
func (resetter) VisitForm(c *Form)                   { c.Value = false }
func (resetter) VisitTable(c *Table)                 { c.Value = TableValue{} }
func (resetter) VisitMarkdown(*Markdown)             {}
func (resetter) VisitColumns(*Columns)               {}
func (resetter) VisitColumnItem(*ColumnItem)         {}

func inRange(i, n int) bool {
	return i >= 0 && i < n
}

func allInRange(idx []int, n int) bool {
	for _, i := range idx {
		if !inRange(i, n) {
			return false
		}
	}
	return true
}

func toOptionalString(k Kind, v any) (Optional[string], error) {
	switch v := v.(type) {
	case nil:
		return None[string](), nil
	case string:
		return Some(v), nil
	case Optional[string]:
		return v, nil
	}
	return None[string](), &ValueError{Kind: k, Value: v, Reason: "expected string"}
}

func toOptionalFloat(k Kind, v any) (Optional[float64], error) {
	var f float64
	switch v := v.(type) {
	case nil:
		return None[float64](), nil
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return None[float64](), &ValueError{Kind: k, Value: v, Reason: err.Error()}
		}
		f = n
	case Optional[float64]:
		n, ok := v.Get()
		if !ok {
			return v, nil
		}
		f = n
	default:
		return None[float64](), &ValueError{Kind: k, Value: v, Reason: "expected number"}
	}
	// NaN and infinities have no JSON encoding.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return None[float64](), &ValueError{Kind: k, Value: v, Reason: "number must be finite"}
	}
	return Some(f), nil
}

func toOptionalTime(k Kind, v any, layout string) (Optional[string], error) {
	switch v := v.(type) {
	case nil:
		return None[string](), nil
	case string:
		if v == "" {
			return None[string](), nil
		}
		return Some(v), nil
	case time.Time:
		return Some(v.Format(layout)), nil
	case Optional[string]:
		return v, nil
	}
	return None[string](), &ValueError{Kind: k, Value: v, Reason: "expected " + layout + " string or time.Time"}
}

func toIndex(k Kind, v any) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, &ValueError{Kind: k, Value: v, Reason: "expected integral option index"}
		}
		return int(v), nil
	}
	return 0, &ValueError{Kind: k, Value: v, Reason: "expected option index"}
}

func toOptionalIndex(k Kind, v any) (Optional[int], error) {
	switch v := v.(type) {
	case nil:
		return None[int](), nil
	case Optional[int]:
		return v, nil
	}
	i, err := toIndex(k, v)
	if err != nil {
		return None[int](), err
	}
	return Some(i), nil
}

func toIndices(k Kind, v any) ([]int, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []int:
		return slices.Clone(v), nil
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			i, err := toIndex(k, item)
			if err != nil {
				return nil, err
			}
			out = append(out, i)
		}
		return out, nil
	}
	return nil, &ValueError{Kind: k, Value: v, Reason: "expected list of option indices"}
}

func toBool(k Kind, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, &ValueError{Kind: k, Value: v, Reason: "expected bool"}
	}
	return b, nil
}

func toTableValue(k Kind, v any) (TableValue, error) {
	switch v := v.(type) {
	case nil:
		return TableValue{}, nil
	case TableValue:
		return v.Clone(), nil
	case TableSelection:
		return TableValue{Selection: &v}.Clone(), nil
	case *TableSelection:
		return TableValue{Selection: v}.Clone(), nil
	}
	return TableValue{}, &ValueError{Kind: k, Value: v, Reason: "expected table selection"}
}
