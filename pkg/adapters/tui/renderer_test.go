package tui_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trysourcetool/sourcetool/pkg/adapters/memory"
	"github.com/trysourcetool/sourcetool/pkg/adapters/tui"
	"github.com/trysourcetool/sourcetool/pkg/client"
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

func plain() *tui.Renderer {
	return tui.NewRenderer(tui.WithStyle("notty"), tui.WithProfile(termenv.Ascii))
}

func TestRenderer_Widgets(t *testing.T) {
	view := client.View{
		SessionID: "s1",
		Status:    domain.StatusIdle,
		Widgets: []*widget.Widget{
			widget.New("md", widget.Path{0}, &widget.Markdown{Body: "# Users"}),
			widget.New("name", widget.Path{1}, &widget.TextInput{Label: "Name", Value: widget.Some("Ada")}),
			widget.New("color", widget.Path{2}, &widget.Selectbox{Label: "Color", Options: []string{"red", "blue"}, Value: widget.Some(1)}),
			widget.New("form", widget.Path{3}, &widget.Form{ButtonLabel: "Save"}),
			widget.New("age", widget.Path{3, 0}, &widget.NumberInput{Label: "Age"}),
			widget.New("table", widget.Path{4}, &widget.Table{
				Data:         json.RawMessage(`[{"name":"a","id":1},{"name":"b","id":2}]`),
				ColumnOrder:  []string{"name"},
				RowSelection: widget.RowSelectionSingle,
				Value:        widget.TableValue{Selection: &widget.TableSelection{Row: 1}},
			}),
		},
		Errors: map[string]string{"name": "too short"},
	}

	out, targets := plain().Render(view)

	assert.Contains(t, out, "session s1 [idle]")
	assert.Contains(t, out, "Users")
	assert.Contains(t, out, "[1] Name: Ada")
	assert.Contains(t, out, "! too short")
	assert.Contains(t, out, "[2] Color: ( ) red  (*) blue")
	assert.Contains(t, out, "[3] form < Save >")
	assert.Contains(t, out, "  [4] Age: -", "form children are indented")
	assert.Contains(t, out, "│ # │ name │ id │")
	assert.Contains(t, out, "│ * │ 1 │ b    │ 2  │")

	require.Len(t, targets, 5)
	ids := make([]string, 0, len(targets))
	for _, tg := range targets {
		ids = append(ids, tg.Widget.ID)
	}
	assert.Equal(t, []string{"name", "color", "form", "age", "table"}, ids)
}

func TestRenderer_TableAlignsWideCharacters(t *testing.T) {
	out, _ := plain().Render(client.View{
		SessionID: "s1",
		Status:    domain.StatusIdle,
		Widgets: []*widget.Widget{
			widget.New("table", widget.Path{0}, &widget.Table{
				Data:        json.RawMessage(`[{"name":"渡辺","city":"東京"},{"name":"Ada","city":"London"}]`),
				ColumnOrder: []string{"name", "city"},
			}),
		},
	})

	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if strings.ContainsAny(line, "│┌├└") {
			rows = append(rows, line)
		}
	}
	require.NotEmpty(t, rows)
	width := lipgloss.Width(rows[0])
	for _, line := range rows {
		assert.Equal(t, width, lipgloss.Width(line), "row %q", line)
	}
	assert.Contains(t, out, "│ 渡辺 │ 東京   │")
	assert.Contains(t, out, "│ Ada  │ London │")
}

func TestRenderer_Exception(t *testing.T) {
	out, targets := plain().Render(client.View{
		SessionID: "s1",
		Status:    domain.StatusFailed,
		Exception: &protocol.Exception{Title: "Script error", Message: "boom", StackTrace: "at page.js:1"},
	})
	assert.Empty(t, targets)
	assert.Contains(t, out, "Script error")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "at page.js:1")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, termenv.Ascii)
	assert.Contains(t, buf.String(), "|___/")
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want tui.Command
	}{
		{"1 Ada Lovelace", tui.Command{Verb: tui.VerbEdit, Target: 1, Arg: "Ada Lovelace"}},
		{"click 2", tui.Command{Verb: tui.VerbClick, Target: 2}},
		{"select 3 0,2", tui.Command{Verb: tui.VerbSelect, Target: 3, Arg: "0,2"}},
		{"clear 4", tui.Command{Verb: tui.VerbClear, Target: 4}},
		{"q", tui.Command{Verb: tui.VerbQuit}},
		{"help", tui.Command{Verb: tui.VerbHelp}},
	}
	for _, tc := range cases {
		got, err := tui.Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "frobnicate 1", "click", "click 0", "select 1"} {
		_, err := tui.Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestValue(t *testing.T) {
	opts := []string{"red", "blue"}

	v, err := tui.Value(&widget.NumberInput{}, "4.5")
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)

	v, err = tui.Value(&widget.Selectbox{Options: opts}, "Blue")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = tui.Value(&widget.MultiSelect{Options: opts}, "1, red, blue")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, v)

	v, err = tui.Value(&widget.Checkbox{}, "no")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	_, err = tui.Value(&widget.Selectbox{Options: opts}, "green")
	assert.Error(t, err)
	_, err = tui.Value(&widget.NumberInput{}, "many")
	assert.Error(t, err)
	_, err = tui.Value(&widget.Markdown{}, "x")
	assert.Error(t, err)
}

func TestExecute(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clientEnd, relayEnd := memory.NewPipe(0)
	defer relayEnd.Close()

	c := client.New(clientEnd, client.WithDebounce(widget.KindTextInput, 0))
	require.NoError(t, c.Initialize(ctx, "page-1", ""))
	_, err := relayEnd.Receive(ctx)
	require.NoError(t, err)

	handle := func(p protocol.Payload) {
		require.NoError(t, c.Handle(ctx, protocol.New(p)))
	}
	handle(&protocol.InitializeClientCompleted{SessionID: "s1"})
	name := widget.New("name", widget.Path{0}, &widget.TextInput{Label: "Name"})
	handle(&protocol.RenderWidget{SessionID: "s1", PageID: "page-1", Path: name.Path, Widget: name})
	handle(&protocol.ScriptFinished{SessionID: "s1", Status: protocol.StatusSuccess})

	_, targets := plain().Render(c.View())
	require.Len(t, targets, 1)

	cmd, err := tui.Parse("1 Ada")
	require.NoError(t, err)
	require.NoError(t, tui.Execute(ctx, c, targets, cmd))

	msg, err := relayEnd.Receive(ctx)
	require.NoError(t, err)
	rerun, ok := msg.Payload.(*protocol.RerunPage)
	require.True(t, ok, "got %s", msg.Kind())
	require.Len(t, rerun.States, 1)
	assert.Equal(t, "Ada", rerun.States[0].Content.(*widget.TextInput).Value.OrElse(""))

	assert.Error(t, tui.Execute(ctx, c, targets, tui.Command{Verb: tui.VerbEdit, Target: 9}))
	assert.ErrorIs(t, tui.Execute(ctx, c, targets, tui.Command{Verb: tui.VerbQuit}), tui.ErrQuit)
}
