package ui_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trysourcetool/sourcetool/pkg/reconcile"
	"github.com/trysourcetool/sourcetool/pkg/ui"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

type emitted struct {
	widget  *widget.Widget
	created bool
}

// run executes script against prev and returns the new tree and the emitted widgets.
func run(t *testing.T, prev *reconcile.Tree, script ui.Script) (*reconcile.Tree, []emitted) {
	t.Helper()
	var out []emitted
	n := 0
	rec := reconcile.NewReconciler(prev, reconcile.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("w%d", n)
	}))
	pass := ui.NewPass(context.Background(), "s1", "p1", rec, func(_ context.Context, w *widget.Widget, created bool) error {
		out = append(out, emitted{widget: w.Clone(), created: created})
		return nil
	})
	require.NoError(t, script(pass.Root()))
	require.NoError(t, pass.Err())
	return pass.Result().Tree, out
}

func commit(t *testing.T, tree *reconcile.Tree, path widget.Path, v any) {
	t.Helper()
	w, ok := tree.Lookup(path)
	require.True(t, ok, "no widget at %s", path)
	require.NoError(t, widget.SetValue(w.Content, v))
}

func TestBuilder_ReturnsCommittedValues(t *testing.T) {
	var greeting string
	script := func(b *ui.UIBuilder) error {
		name := b.TextInput("Name", nil)
		if name != "" {
			greeting = "Hello, " + name + "!"
			b.Markdown(greeting)
		}
		return nil
	}

	tree, out := run(t, nil, script)
	require.Len(t, out, 1)
	assert.True(t, out[0].created)
	assert.Equal(t, widget.Path{0}, out[0].widget.Path)

	commit(t, tree, widget.Path{0}, "Ada")
	_, out = run(t, tree, script)
	require.Len(t, out, 2)
	assert.False(t, out[0].created, "same slot keeps its id")
	assert.Equal(t, "w1", out[0].widget.ID)
	assert.Equal(t, "Hello, Ada!", greeting)
	assert.Equal(t, "Hello, Ada!", out[1].widget.Content.(*widget.Markdown).Body)
}

func TestBuilder_Paths(t *testing.T) {
	_, out := run(t, nil, func(b *ui.UIBuilder) error {
		b.Markdown("title")
		cols := b.Columns(2, &ui.ColumnsOptions{Weights: []float64{2}})
		cols[0].Checkbox("left", nil)
		cols[1].Checkbox("right", nil)
		form, _ := b.Form("Save", nil)
		form.TextInput("Title", nil)
		return nil
	})

	var paths []string
	for _, e := range out {
		paths = append(paths, e.widget.Path.String()+":"+string(e.widget.Kind()))
	}
	assert.Equal(t, []string{
		"0:markdown",
		"1:columns",
		"1.0:columnItem",
		"1.1:columnItem",
		"1.0.0:checkbox",
		"1.1.0:checkbox",
		"2:form",
		"2.0:textInput",
	}, paths)
	assert.Equal(t, 2.0, out[2].widget.Content.(*widget.ColumnItem).Weight)
	assert.Equal(t, 1.0, out[3].widget.Content.(*widget.ColumnItem).Weight)
}

func TestBuilder_ButtonIsMomentary(t *testing.T) {
	var clicks []bool
	script := func(b *ui.UIBuilder) error {
		clicks = append(clicks, b.Button("Go", nil))
		return nil
	}

	tree, _ := run(t, nil, script)
	commit(t, tree, widget.Path{0}, true)
	tree, out := run(t, tree, script)
	assert.False(t, out[0].widget.Content.(*widget.Button).Value, "clicks are never echoed")

	_, _ = run(t, tree, script)
	assert.Equal(t, []bool{false, true, false}, clicks)
}

func TestBuilder_FormSubmitRequiresValidFields(t *testing.T) {
	var submissions []bool
	script := func(b *ui.UIBuilder) error {
		form, submitted := b.Form("Save", nil)
		form.TextInput("Title", &ui.TextInputOptions{Required: true})
		submissions = append(submissions, submitted)
		return nil
	}

	tree, _ := run(t, nil, script)
	commit(t, tree, widget.Path{0}, true)
	tree, _ = run(t, tree, script)

	commit(t, tree, widget.Path{0}, true)
	commit(t, tree, widget.Path{0, 0}, "Release notes")
	_, _ = run(t, tree, script)

	assert.Equal(t, []bool{false, false, true}, submissions)
}

func TestBuilder_FormClearOnSubmit(t *testing.T) {
	var seen string
	script := func(b *ui.UIBuilder) error {
		form, _ := b.Form("Send", &ui.FormOptions{ClearOnSubmit: true})
		seen = form.TextInput("Message", &ui.TextInputOptions{DefaultValue: widget.Some("hi")})
		return nil
	}

	tree, _ := run(t, nil, script)
	commit(t, tree, widget.Path{0}, true)
	commit(t, tree, widget.Path{0, 0}, "typed")

	tree, out := run(t, tree, script)
	assert.Equal(t, "typed", seen, "the submit pass sees the submitted value")
	assert.Equal(t, "hi", out[1].widget.Content.(*widget.TextInput).Value.OrElse(""))

	msg, _ := tree.Lookup(widget.Path{0, 0})
	assert.Equal(t, "hi", msg.Content.(*widget.TextInput).Value.OrElse(""))
}

func TestBuilder_Choices(t *testing.T) {
	var (
		sel    widget.Optional[ui.Selection]
		multi  []ui.Selection
		picked widget.Optional[time.Time]
	)
	script := func(b *ui.UIBuilder) error {
		sel = b.Selectbox("Color", &ui.SelectboxOptions{Options: []string{"red", "green"}, DefaultValue: widget.Some("green")})
		multi = b.MultiSelect("Tags", &ui.MultiSelectOptions{Options: []string{"a", "b", "c"}, DefaultValue: []string{"c", "a"}})
		picked = b.DateInput("Day", &ui.DateInputOptions{Location: "UTC"})
		return nil
	}

	tree, _ := run(t, nil, script)
	s, ok := sel.Get()
	require.True(t, ok)
	assert.Equal(t, ui.Selection{Index: 1, Value: "green"}, s)
	assert.Equal(t, []ui.Selection{{Index: 0, Value: "a"}, {Index: 2, Value: "c"}}, multi)
	assert.False(t, picked.IsSet())

	commit(t, tree, widget.Path{2}, "2024-05-01")
	_, _ = run(t, tree, script)
	day, ok := picked.Get()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), day)
}

func TestBuilder_TableSelection(t *testing.T) {
	rows := []map[string]any{{"name": "a"}, {"name": "b"}, {"name": "c"}}
	var value widget.TableValue
	script := func(b *ui.UIBuilder) error {
		value = b.Table(rows, &ui.TableOptions{RowSelection: widget.RowSelectionSingle})
		return nil
	}

	tree, out := run(t, nil, script)
	table := out[0].widget.Content.(*widget.Table)
	assert.JSONEq(t, `[{"name":"a"},{"name":"b"},{"name":"c"}]`, string(table.Data))
	assert.Equal(t, widget.SelectActionRerun, table.OnSelect, "selecting a row reruns unless told otherwise")
	assert.Nil(t, value.Selection)

	commit(t, tree, widget.Path{0}, widget.TableSelection{Row: 2})
	_, _ = run(t, tree, script)
	require.NotNil(t, value.Selection)
	assert.Equal(t, 2, value.Selection.Row)
}

func TestPass_StopsAfterEmitFailure(t *testing.T) {
	rec := reconcile.NewReconciler(nil)
	calls := 0
	pass := ui.NewPass(context.Background(), "s", "p", rec, func(context.Context, *widget.Widget, bool) error {
		calls++
		return fmt.Errorf("connection lost")
	})
	b := pass.Root()
	b.Markdown("one")
	b.Markdown("two")
	assert.Equal(t, "", b.TextInput("x", nil))

	assert.ErrorIs(t, pass.Err(), ui.ErrPassAborted)
	assert.Equal(t, 1, calls)
}

func TestPass_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pass := ui.NewPass(ctx, "s", "p", reconcile.NewReconciler(nil), nil)
	pass.Root().Markdown("never")
	assert.ErrorIs(t, pass.Err(), context.Canceled)
	assert.Equal(t, 0, pass.Result().Tree.Len())
}
