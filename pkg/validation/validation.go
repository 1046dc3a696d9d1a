// Package validation checks widget values against the constraints declared
// by the script.
//
// The same rules run on both sides: the Client stores the result next to its
// optimistic value, the Host uses it to decide whether a form submit counts.
package validation

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Result is the outcome of validating one widget.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

var valid = Result{OK: true}

func invalid(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// MsgRequired is reported for required widgets without a value.
const MsgRequired = "This field is required"

// Validate checks the committed value of c. Widgets without a value are always valid.
func Validate(c widget.Content) Result {
	if c == nil {
		return valid
	}
	v := &visitor{res: valid}
	c.Accept(v)
	return v.res
}

// ValidateTree validates every widget and returns the failures keyed by widget id.
func ValidateTree(widgets []*widget.Widget) map[string]Result {
	failures := make(map[string]Result)
	for _, w := range widgets {
		if w == nil {
			continue
		}
		if res := Validate(w.Content); !res.OK {
			failures[w.ID] = res
		}
	}
	return failures
}

type visitor struct {
	res Result
}

func (v *visitor) text(value widget.Optional[string], required bool, minLen, maxLen widget.Optional[int]) {
	s := value.OrElse("")
	if s == "" {
		if required {
			v.res = invalid(MsgRequired)
		}
		return
	}
	n := utf8.RuneCountInString(s)
	if min, ok := minLen.Get(); ok && n < min {
		v.res = invalid("Must be at least %d characters", min)
		return
	}
	if max, ok := maxLen.Get(); ok && n > max {
		v.res = invalid("Must be at most %d characters", max)
	}
}

func (v *visitor) VisitTextInput(c *widget.TextInput) {
	v.text(c.Value, c.Required, c.MinLength, c.MaxLength)
}

func (v *visitor) VisitTextArea(c *widget.TextArea) {
	v.text(c.Value, c.Required, c.MinLength, c.MaxLength)
}

func (v *visitor) VisitNumberInput(c *widget.NumberInput) {
	n, ok := c.Value.Get()
	if !ok {
		if c.Required {
			v.res = invalid(MsgRequired)
		}
		return
	}
	if min, ok := c.MinValue.Get(); ok && n < min {
		v.res = invalid("Must be at least %s", formatFloat(min))
		return
	}
	if max, ok := c.MaxValue.Get(); ok && n > max {
		v.res = invalid("Must be at most %s", formatFloat(max))
	}
}

func (v *visitor) dated(value widget.Optional[string], required bool, layout, location string, min, max widget.Optional[string]) {
	s := value.OrElse("")
	if s == "" {
		if required {
			v.res = invalid(MsgRequired)
		}
		return
	}
	loc := loadLocation(location)
	ts, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		v.res = invalid("Must match %s", layout)
		return
	}
	if bound, ok := min.Get(); ok {
		if b, err := time.ParseInLocation(layout, bound, loc); err == nil && ts.Before(b) {
			v.res = invalid("Must be on or after %s", bound)
			return
		}
	}
	if bound, ok := max.Get(); ok {
		if b, err := time.ParseInLocation(layout, bound, loc); err == nil && ts.After(b) {
			v.res = invalid("Must be on or before %s", bound)
		}
	}
}

func (v *visitor) VisitDateInput(c *widget.DateInput) {
	v.dated(c.Value, c.Required, widget.DateLayout, c.Location, c.MinValue, c.MaxValue)
}

func (v *visitor) VisitDateTimeInput(c *widget.DateTimeInput) {
	v.dated(c.Value, c.Required, widget.DateTimeLayout, c.Location, c.MinValue, c.MaxValue)
}

func (v *visitor) VisitTimeInput(c *widget.TimeInput) {
	none := widget.None[string]()
	v.dated(c.Value, c.Required, widget.TimeLayout, c.Location, none, none)
}

func (v *visitor) index(value widget.Optional[int], required bool, options int) {
	i, ok := value.Get()
	if !ok {
		if required {
			v.res = invalid(MsgRequired)
		}
		return
	}
	if i < 0 || i >= options {
		v.res = invalid("Option %d does not exist", i)
	}
}

func (v *visitor) VisitSelectbox(c *widget.Selectbox) {
	v.index(c.Value, c.Required, len(c.Options))
}

func (v *visitor) VisitRadio(c *widget.Radio) {
	v.index(c.Value, c.Required, len(c.Options))
}

func (v *visitor) set(value []int, required bool, options int) {
	if len(value) == 0 {
		if required {
			v.res = invalid(MsgRequired)
		}
		return
	}
	for _, i := range value {
		if i < 0 || i >= options {
			v.res = invalid("Option %d does not exist", i)
			return
		}
	}
}

func (v *visitor) VisitMultiSelect(c *widget.MultiSelect) {
	v.set(c.Value, c.Required, len(c.Options))
}

func (v *visitor) VisitCheckboxGroup(c *widget.CheckboxGroup) {
	v.set(c.Value, c.Required, len(c.Options))
}

func (v *visitor) VisitCheckbox(c *widget.Checkbox) {
	if c.Required && !c.Value {
		v.res = invalid(MsgRequired)
	}
}

func (v *visitor) VisitTable(c *widget.Table) {
	sel := c.Value.Selection
	if sel == nil {
		return
	}
	if c.RowSelection == widget.RowSelectionSingle && len(sel.Rows) > 1 {
		v.res = invalid("Only one row can be selected")
	}
}

func (v *visitor) VisitButton(*widget.Button)         {}
func (v *visitor) VisitMarkdown(*widget.Markdown)     {}
func (v *visitor) VisitColumns(*widget.Columns)       {}
func (v *visitor) VisitColumnItem(*widget.ColumnItem) {}
func (v *visitor) VisitForm(*widget.Form)             {}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
