package script_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trysourcetool/sourcetool/pkg/adapters/script"
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/reconcile"
	"github.com/trysourcetool/sourcetool/pkg/ui"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// run executes prog for one pass against prev.
func run(ctx context.Context, prev *reconcile.Tree, prog *script.Program) (*reconcile.Tree, []*widget.Widget, error) {
	var out []*widget.Widget
	n := 0
	rec := reconcile.NewReconciler(prev, reconcile.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("w%d", n)
	}))
	pass := ui.NewPass(ctx, "s1", "p1", rec, func(_ context.Context, w *widget.Widget, _ bool) error {
		out = append(out, w.Clone())
		return nil
	})
	if err := prog.Run(pass.Root()); err != nil {
		return nil, out, err
	}
	if err := pass.Err(); err != nil {
		return nil, out, err
	}
	return pass.Result().Tree, out, nil
}

func compile(t *testing.T, source string) *script.Program {
	t.Helper()
	prog, err := script.Compile("page.js", source)
	require.NoError(t, err)
	return prog
}

func TestProgram_Greeting(t *testing.T) {
	prog := compile(t, `
const name = ui.textInput("Name", {placeholder: "Your name", maxLength: 20});
if (name) {
  ui.markdown("Hello, " + name + "!");
}
`)
	ctx := context.Background()

	tree, out, err := run(ctx, nil, prog)
	require.NoError(t, err)
	require.Len(t, out, 1)
	text, ok := out[0].Content.(*widget.TextInput)
	require.True(t, ok)
	assert.Equal(t, "Your name", text.Placeholder)
	assert.Equal(t, 20, text.MaxLength.OrElse(0))

	w, ok := tree.Lookup(widget.Path{0})
	require.True(t, ok)
	require.NoError(t, widget.SetValue(w.Content, "Ada"))

	_, out, err = run(ctx, tree, prog)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Hello, Ada!", out[1].Content.(*widget.Markdown).Body)
}

func TestProgram_LayoutAndValues(t *testing.T) {
	prog := compile(t, `
const cols = ui.columns(2, {weights: [2, 1]});
const age = cols[0].numberInput("Age", {minValue: 0});
const color = cols[1].selectbox("Color", {options: ["red", "blue"], defaultValue: "blue"});
const f = ui.form("Save", {clearOnSubmit: true});
f.ui.textInput("Title");
ui.markdown(JSON.stringify({age: age, color: color, submitted: f.submitted, session: session.id}));
`)
	_, out, err := run(context.Background(), nil, prog)
	require.NoError(t, err)

	paths := make([]widget.Path, 0, len(out))
	for _, w := range out {
		paths = append(paths, w.Path)
	}
	assert.Equal(t, []widget.Path{
		{0}, {0, 0}, {0, 1}, {0, 0, 0}, {0, 1, 0}, {1}, {1, 0}, {2},
	}, paths)

	form, ok := out[5].Content.(*widget.Form)
	require.True(t, ok)
	assert.True(t, form.ClearOnSubmit)
	body := out[len(out)-1].Content.(*widget.Markdown).Body
	assert.JSONEq(t, `{"age":null,"color":{"index":1,"value":"blue"},"submitted":false,"session":"s1"}`, body)
}

func TestProgram_Table(t *testing.T) {
	prog := compile(t, `
const sel = ui.table([{name: "a"}, {name: "b"}], {rowSelection: "single", onSelect: "rerun"});
ui.markdown(sel === null ? "none" : "row " + sel.row);
`)
	_, out, err := run(context.Background(), nil, prog)
	require.NoError(t, err)
	require.Len(t, out, 2)
	table, ok := out[0].Content.(*widget.Table)
	require.True(t, ok)
	assert.JSONEq(t, `[{"name":"a"},{"name":"b"}]`, string(table.Data))
	assert.Equal(t, widget.SelectActionRerun, table.OnSelect)
	assert.Equal(t, "none", out[1].Content.(*widget.Markdown).Body)
}

func TestProgram_ThrowCarriesStack(t *testing.T) {
	prog := compile(t, `
function check() { throw new Error("boom"); }
ui.markdown("before");
check();
`)
	_, out, err := run(context.Background(), nil, prog)
	require.Error(t, err)
	assert.Len(t, out, 1, "widgets placed before the throw were still sent")

	var serr *script.Error
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Message, "boom")
	assert.Contains(t, serr.StackTrace(), "check")

	ex := protocol.NewException("s1", "Script error", err)
	assert.NotEmpty(t, ex.StackTrace)
}

func TestProgram_InvalidOptions(t *testing.T) {
	prog := compile(t, `ui.textInput("Name", {colour: "red"});`)
	_, _, err := run(context.Background(), nil, prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")

	prog = compile(t, `ui.table([], {onSelect: "explode"});`)
	_, _, err = run(context.Background(), nil, prog)
	assert.ErrorContains(t, err, "explode")
}

func TestProgram_Interrupted(t *testing.T) {
	prog := compile(t, `while (true) {}`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := run(ctx, nil, prog)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := script.Compile("bad.js", "ui.markdown(")
	assert.ErrorContains(t, err, "bad.js")
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoadDir_Discovery(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"user-list.js": `ui.markdown("users")`,
		"hello.js":     `ui.markdown("hi")`,
		"notes.txt":    `ignored`,
	})
	pages, err := script.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "Hello", pages[0].Page.Name)
	assert.Equal(t, "/hello", pages[0].Page.Route)
	assert.Equal(t, domain.PageID("/hello"), pages[0].Page.ID)
	assert.Equal(t, []int{0}, pages[0].Page.Path)
	assert.Equal(t, "User list", pages[1].Page.Name)
	assert.Equal(t, []int{1}, pages[1].Page.Path)
}

func TestLoadDir_Manifest(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.js": `ui.markdown("a")`,
		"b.js": `ui.markdown("b")`,
		script.ManifestFile: `
pages:
  - name: Beta
    route: beta
    script: b.js
    groups: [admin]
  - script: a.js
`,
	})
	pages, err := script.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Beta", pages[0].Page.Name)
	assert.Equal(t, "/beta", pages[0].Page.Route)
	assert.Equal(t, []string{"admin"}, pages[0].Page.Groups)
	assert.Equal(t, "/a", pages[1].Page.Route)
	assert.Equal(t, "A", pages[1].Page.Name)
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := script.LoadDir(t.TempDir())
	assert.ErrorContains(t, err, "no page scripts")

	dir := writeFiles(t, map[string]string{
		"a.js":              `ui.markdown("a")`,
		script.ManifestFile: "pages:\n  - script: a.js\n  - script: a.js\n",
	})
	_, err = script.LoadDir(dir)
	assert.ErrorContains(t, err, "duplicate route")

	dir = writeFiles(t, map[string]string{"broken.js": "ui.markdown("})
	_, err = script.LoadDir(dir)
	assert.ErrorContains(t, err, "broken.js")
}

func TestLoadDir_Examples(t *testing.T) {
	pages, err := script.LoadDir(filepath.Join("..", "..", "..", "examples", "pages"))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "/greet", pages[0].Page.Route)
	assert.Equal(t, []string{"ops"}, pages[1].Page.Groups)

	for _, p := range pages {
		_, out, err := run(context.Background(), nil, p.Program)
		require.NoError(t, err, p.Page.Route)
		assert.NotEmpty(t, out, p.Page.Route)
	}
}
