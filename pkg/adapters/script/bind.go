package script

import (
	"time"

	"github.com/dop251/goja"

	"github.com/trysourcetool/sourcetool/pkg/ui"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// binder exposes one UIBuilder to a runtime. Every container gets its own binder.
type binder struct {
	vm *goja.Runtime
	b  *ui.UIBuilder
}

func bind(vm *goja.Runtime, b *ui.UIBuilder) *goja.Object {
	bd := &binder{vm: vm, b: b}
	obj := vm.NewObject()
	set := func(name string, fn func(goja.FunctionCall) goja.Value) {
		_ = obj.Set(name, fn)
	}
	set("markdown", bd.markdown)
	set("textInput", bd.textInput)
	set("textArea", bd.textArea)
	set("numberInput", bd.numberInput)
	set("dateInput", bd.dateInput)
	set("dateTimeInput", bd.dateTimeInput)
	set("timeInput", bd.timeInput)
	set("selectbox", bd.selectbox)
	set("radio", bd.radio)
	set("multiSelect", bd.multiSelect)
	set("checkboxGroup", bd.checkboxGroup)
	set("checkbox", bd.checkbox)
	set("button", bd.button)
	set("table", bd.table)
	set("columns", bd.columns)
	set("form", bd.form)
	return obj
}

// label returns argument 0 as a string or throws a TypeError.
func (bd *binder) label(call goja.FunctionCall) string {
	arg := call.Argument(0)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		panic(bd.vm.NewTypeError("label is required"))
	}
	return arg.String()
}

// options decodes argument i into out, throwing a TypeError on mismatch.
func (bd *binder) options(call goja.FunctionCall, i int, out any) {
	arg := call.Argument(i)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		return
	}
	if err := decode(arg.Export(), out); err != nil {
		panic(bd.vm.NewTypeError(err.Error()))
	}
}

func (bd *binder) throw(err error) {
	if err != nil {
		panic(bd.vm.NewTypeError(err.Error()))
	}
}

func (bd *binder) markdown(call goja.FunctionCall) goja.Value {
	bd.b.Markdown(call.Argument(0).String())
	return goja.Undefined()
}

func (bd *binder) textInput(call goja.FunctionCall) goja.Value {
	var o textOptions
	bd.options(call, 1, &o)
	return bd.vm.ToValue(bd.b.TextInput(bd.label(call), o.textInput()))
}

func (bd *binder) textArea(call goja.FunctionCall) goja.Value {
	var o textOptions
	bd.options(call, 1, &o)
	return bd.vm.ToValue(bd.b.TextArea(bd.label(call), o.textArea()))
}

func (bd *binder) numberInput(call goja.FunctionCall) goja.Value {
	var o numberOptions
	bd.options(call, 1, &o)
	v, ok := bd.b.NumberInput(bd.label(call), o.ui()).Get()
	if !ok {
		return goja.Null()
	}
	return bd.vm.ToValue(v)
}

// Temporal values cross into scripts as strings in the widget layout.
func (bd *binder) temporal(v widget.Optional[time.Time], layout string) goja.Value {
	t, ok := v.Get()
	if !ok {
		return goja.Null()
	}
	return bd.vm.ToValue(t.Format(layout))
}

func (bd *binder) dateInput(call goja.FunctionCall) goja.Value {
	var o dateOptions
	bd.options(call, 1, &o)
	return bd.temporal(bd.b.DateInput(bd.label(call), o.date()), widget.DateLayout)
}

func (bd *binder) dateTimeInput(call goja.FunctionCall) goja.Value {
	var o dateOptions
	bd.options(call, 1, &o)
	return bd.temporal(bd.b.DateTimeInput(bd.label(call), o.date()), widget.DateTimeLayout)
}

func (bd *binder) timeInput(call goja.FunctionCall) goja.Value {
	var o dateOptions
	bd.options(call, 1, &o)
	return bd.temporal(bd.b.TimeInput(bd.label(call), o.timeOfDay()), widget.TimeLayout)
}

func (bd *binder) selection(s ui.Selection) map[string]any {
	return map[string]any{"index": s.Index, "value": s.Value}
}

func (bd *binder) selections(list []ui.Selection) goja.Value {
	out := make([]any, 0, len(list))
	for _, s := range list {
		out = append(out, bd.selection(s))
	}
	return bd.vm.ToValue(out)
}

func (bd *binder) single(call goja.FunctionCall, fn func(string, *ui.SelectboxOptions) widget.Optional[ui.Selection]) goja.Value {
	var o choiceOptions
	bd.options(call, 1, &o)
	opts, err := o.single()
	bd.throw(err)
	s, ok := fn(bd.label(call), opts).Get()
	if !ok {
		return goja.Null()
	}
	return bd.vm.ToValue(bd.selection(s))
}

func (bd *binder) multiple(call goja.FunctionCall, fn func(string, *ui.MultiSelectOptions) []ui.Selection) goja.Value {
	var o choiceOptions
	bd.options(call, 1, &o)
	opts, err := o.multiple()
	bd.throw(err)
	return bd.selections(fn(bd.label(call), opts))
}

func (bd *binder) selectbox(call goja.FunctionCall) goja.Value {
	return bd.single(call, bd.b.Selectbox)
}

func (bd *binder) radio(call goja.FunctionCall) goja.Value {
	return bd.single(call, bd.b.Radio)
}

func (bd *binder) multiSelect(call goja.FunctionCall) goja.Value {
	return bd.multiple(call, bd.b.MultiSelect)
}

func (bd *binder) checkboxGroup(call goja.FunctionCall) goja.Value {
	return bd.multiple(call, bd.b.CheckboxGroup)
}

func (bd *binder) checkbox(call goja.FunctionCall) goja.Value {
	var o checkboxOptions
	bd.options(call, 1, &o)
	return bd.vm.ToValue(bd.b.Checkbox(bd.label(call), &ui.CheckboxOptions{
		DefaultValue: o.DefaultValue,
		Required:     o.Required,
		Disabled:     o.Disabled,
	}))
}

func (bd *binder) button(call goja.FunctionCall) goja.Value {
	var o buttonOptions
	bd.options(call, 1, &o)
	return bd.vm.ToValue(bd.b.Button(bd.label(call), &ui.ButtonOptions{Disabled: o.Disabled}))
}

func (bd *binder) table(call goja.FunctionCall) goja.Value {
	var o tableOptions
	bd.options(call, 1, &o)
	opts, err := o.ui()
	bd.throw(err)
	v := bd.b.Table(call.Argument(0).Export(), opts)
	if v.Selection == nil {
		return goja.Null()
	}
	rows := make([]any, 0, len(v.Selection.Rows))
	for _, r := range v.Selection.Rows {
		rows = append(rows, r)
	}
	return bd.vm.ToValue(map[string]any{"row": v.Selection.Row, "rows": rows})
}

func (bd *binder) columns(call goja.FunctionCall) goja.Value {
	n := int(call.Argument(0).ToInteger())
	var o columnsOptions
	bd.options(call, 1, &o)
	cols := bd.b.Columns(n, &ui.ColumnsOptions{Weights: o.Weights})
	out := make([]any, 0, len(cols))
	for _, c := range cols {
		out = append(out, bind(bd.vm, c))
	}
	return bd.vm.ToValue(out)
}

func (bd *binder) form(call goja.FunctionCall) goja.Value {
	var o formOptions
	bd.options(call, 1, &o)
	child, submitted := bd.b.Form(bd.label(call), &ui.FormOptions{
		ButtonDisabled: o.ButtonDisabled,
		ClearOnSubmit:  o.ClearOnSubmit,
	})
	return bd.vm.ToValue(map[string]any{
		"ui":        bind(bd.vm, child),
		"submitted": submitted,
	})
}
