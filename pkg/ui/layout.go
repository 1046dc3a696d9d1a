package ui

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Markdown declares static text.
func (b *UIBuilder) Markdown(body string) {
	b.place(&widget.Markdown{Body: body})
}

// Button declares a button. It returns true only in the pass triggered by its click.
func (b *UIBuilder) Button(label string, opts *ButtonOptions) bool {
	o := orDefault(opts)
	_, clicked := b.place(&widget.Button{Label: label, Disabled: o.Disabled})
	return clicked
}

// Table declares a table over data, which must marshal to a JSON array of objects.
func (b *UIBuilder) Table(data any, opts *TableOptions) widget.TableValue {
	o := orDefault(opts)
	raw, err := json.Marshal(data)
	if err != nil {
		if b.pass.err == nil {
			b.pass.err = fmt.Errorf("%w: table data: %w", ErrPassAborted, err)
		}
		return widget.TableValue{}
	}
	onSelect := o.OnSelect
	if onSelect == "" {
		onSelect = widget.SelectActionRerun
	}
	c := &widget.Table{
		Data:         raw,
		Header:       o.Header,
		Description:  o.Description,
		Height:       o.Height,
		ColumnOrder:  slices.Clone(o.ColumnOrder),
		OnSelect:     onSelect,
		RowSelection: o.RowSelection,
	}
	if w, _ := b.place(c); w == nil {
		return widget.TableValue{}
	}
	return c.Value.Clone()
}

// Columns declares n side-by-side columns and returns one builder per column.
func (b *UIBuilder) Columns(n int, opts *ColumnsOptions) []*UIBuilder {
	o := orDefault(opts)
	if n < 1 {
		n = 1
	}
	w, _ := b.place(&widget.Columns{Columns: n})
	if w == nil {
		return discarded(b, n)
	}
	cols := make([]*UIBuilder, 0, n)
	container := b.child(w.Path, b.reset)
	for i := 0; i < n; i++ {
		weight := 1.0
		if i < len(o.Weights) && o.Weights[i] > 0 {
			weight = o.Weights[i]
		}
		item, _ := container.place(&widget.ColumnItem{Weight: weight})
		if item == nil {
			return discarded(b, n)
		}
		cols = append(cols, b.child(item.Path, b.reset))
	}
	return cols
}

// Form declares a form. Widgets placed through the returned builder are
// committed together when the form's button is pressed. submitted is true
// only in the pass triggered by that press, and only if every field of the
// form validated.
func (b *UIBuilder) Form(buttonLabel string, opts *FormOptions) (*UIBuilder, bool) {
	o := orDefault(opts)
	w, pressed := b.place(&widget.Form{
		ButtonLabel:    buttonLabel,
		ButtonDisabled: o.ButtonDisabled,
		ClearOnSubmit:  o.ClearOnSubmit,
	})
	if w == nil {
		return discarded(b, 1)[0], false
	}
	submitted := pressed && b.formSubmitted(w.Path)
	return b.child(w.Path, b.reset || (submitted && o.ClearOnSubmit)), submitted
}

// discarded returns builders for a pass that already failed; their calls are no-ops.
func discarded(b *UIBuilder, n int) []*UIBuilder {
	out := make([]*UIBuilder, n)
	for i := range out {
		out[i] = b.child(b.path.Child(-1), false)
	}
	return out
}
