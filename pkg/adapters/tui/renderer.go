// Package tui renders a client view as plain terminal text and turns typed
// commands into client interactions. It backs the attach command.
package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/trysourcetool/sourcetool/pkg/client"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Target is an interactive widget addressable by its number on screen.
type Target struct {
	Index  int
	Widget *widget.Widget
}

// Renderer draws views. The zero value is not usable; use NewRenderer.
type Renderer struct {
	markdown func(string) (string, error)
	profile  termenv.Profile
}

type rendererConfig struct {
	style   string
	width   int
	profile termenv.Profile
}

// Option configures a Renderer.
type Option func(*rendererConfig)

// WithStyle selects a glamour style: "auto", "dark", "light" or "notty".
func WithStyle(style string) Option {
	return func(c *rendererConfig) {
		c.style = style
	}
}

// WithWordWrap sets the markdown wrap width.
func WithWordWrap(width int) Option {
	return func(c *rendererConfig) {
		c.width = width
	}
}

// WithProfile sets the color profile used for labels and errors.
func WithProfile(p termenv.Profile) Option {
	return func(c *rendererConfig) {
		c.profile = p
	}
}

// NewRenderer builds a renderer. Markdown falls back to raw text if glamour
// cannot be configured.
func NewRenderer(opts ...Option) *Renderer {
	cfg := rendererConfig{style: "auto", width: DefaultWidth, profile: termenv.Ascii}
	for _, opt := range opts {
		opt(&cfg)
	}
	gopts := []glamour.TermRendererOption{glamour.WithWordWrap(cfg.width)}
	if cfg.style == "auto" {
		gopts = append(gopts, glamour.WithAutoStyle())
	} else {
		gopts = append(gopts, glamour.WithStandardStyle(cfg.style))
	}

	r := &Renderer{profile: cfg.profile}
	md, err := glamour.NewTermRenderer(gopts...)
	if err != nil {
		r.markdown = func(s string) (string, error) { return s, nil }
	} else {
		r.markdown = md.Render
	}
	return r
}

func (r *Renderer) color(s, hex string) string {
	return termenv.String(s).Foreground(r.profile.Color(hex)).String()
}

// Render draws v and returns the numbered targets in screen order.
func (r *Renderer) Render(v client.View) (string, []Target) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", r.color("session "+v.SessionID, "#818cf8"), r.color("["+string(v.Status)+"]", "#a1a1aa"))

	if v.Exception != nil {
		b.WriteString(r.color("✗ "+v.Exception.Title, "#f87171"))
		b.WriteString("\n")
		if v.Exception.Message != "" {
			b.WriteString(v.Exception.Message + "\n")
		}
		if v.Exception.StackTrace != "" {
			b.WriteString("\n" + v.Exception.StackTrace + "\n")
		}
		return b.String(), nil
	}

	var targets []Target
	for _, w := range v.Widgets {
		indent := strings.Repeat("  ", max(len(w.Path)-1, 0))
		number := ""
		if interactive(w.Content) {
			targets = append(targets, Target{Index: len(targets) + 1, Widget: w})
			number = fmt.Sprintf("[%d] ", len(targets))
		}
		for _, line := range r.lines(w) {
			b.WriteString(indent + number + line + "\n")
			number = strings.Repeat(" ", len(number))
		}
		if msg, ok := v.Errors[w.ID]; ok && msg != "" {
			b.WriteString(indent + r.color("  ! "+msg, "#f87171") + "\n")
		}
	}
	return b.String(), targets
}

func interactive(c widget.Content) bool {
	switch c := c.(type) {
	case *widget.Markdown, *widget.Columns, *widget.ColumnItem:
		return false
	case *widget.Table:
		return c.RowSelection != widget.RowSelectionNone
	}
	return true
}

func (r *Renderer) label(s string, disabled bool) string {
	if disabled {
		return r.color(s+" (disabled)", "#71717a")
	}
	return r.color(s, "#e879f9")
}

func text(v widget.Optional[string], placeholder string) string {
	if s, ok := v.Get(); ok && s != "" {
		return s
	}
	if placeholder != "" {
		return "<" + placeholder + ">"
	}
	return "-"
}

func marks(options []string, selected func(int) bool, on, off string) string {
	parts := make([]string, 0, len(options))
	for i, o := range options {
		m := off
		if selected(i) {
			m = on
		}
		parts = append(parts, m+" "+o)
	}
	return strings.Join(parts, "  ")
}

func (r *Renderer) lines(w *widget.Widget) []string {
	switch c := w.Content.(type) {
	case *widget.Markdown:
		out, err := r.markdown(c.Body)
		if err != nil {
			out = c.Body
		}
		return strings.Split(strings.Trim(out, "\n"), "\n")
	case *widget.TextInput:
		return []string{r.label(c.Label, c.Disabled) + ": " + text(c.Value, c.Placeholder)}
	case *widget.TextArea:
		body := strings.Split(text(c.Value, c.Placeholder), "\n")
		return append([]string{r.label(c.Label, c.Disabled) + ":"}, body...)
	case *widget.NumberInput:
		value := "-"
		if f, ok := c.Value.Get(); ok {
			value = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return []string{r.label(c.Label, c.Disabled) + ": " + value}
	case *widget.DateInput:
		return []string{r.label(c.Label, c.Disabled) + ": " + text(c.Value, c.Placeholder)}
	case *widget.DateTimeInput:
		return []string{r.label(c.Label, c.Disabled) + ": " + text(c.Value, c.Placeholder)}
	case *widget.TimeInput:
		return []string{r.label(c.Label, c.Disabled) + ": " + text(c.Value, c.Placeholder)}
	case *widget.Selectbox:
		i, ok := c.Value.Get()
		return []string{r.label(c.Label, c.Disabled) + ": " + marks(c.Options, func(n int) bool { return ok && n == i }, "(*)", "( )")}
	case *widget.Radio:
		i, ok := c.Value.Get()
		return []string{r.label(c.Label, c.Disabled) + ": " + marks(c.Options, func(n int) bool { return ok && n == i }, "(*)", "( )")}
	case *widget.MultiSelect:
		return []string{r.label(c.Label, c.Disabled) + ": " + marks(c.Options, contains(c.Value), "[x]", "[ ]")}
	case *widget.CheckboxGroup:
		return []string{r.label(c.Label, c.Disabled) + ": " + marks(c.Options, contains(c.Value), "[x]", "[ ]")}
	case *widget.Checkbox:
		box := "[ ]"
		if c.Value {
			box = "[x]"
		}
		return []string{box + " " + r.label(c.Label, c.Disabled)}
	case *widget.Button:
		return []string{"< " + r.label(c.Label, c.Disabled) + " >"}
	case *widget.Form:
		return []string{"form < " + r.label(c.ButtonLabel, c.ButtonDisabled) + " >"}
	case *widget.Columns:
		return []string{r.color(fmt.Sprintf("columns (%d)", c.Columns), "#a1a1aa")}
	case *widget.ColumnItem:
		return []string{r.color("column", "#a1a1aa")}
	case *widget.Table:
		return r.table(c)
	}
	return []string{string(w.Kind())}
}

func contains(values []int) func(int) bool {
	return func(n int) bool {
		for _, v := range values {
			if v == n {
				return true
			}
		}
		return false
	}
}

// table draws rows as aligned text. Columns follow ColumnOrder, then the
// remaining keys of the first row in name order.
func (r *Renderer) table(c *widget.Table) []string {
	var rows []map[string]any
	if err := json.Unmarshal(c.Data, &rows); err != nil {
		return []string{r.color("table: "+err.Error(), "#f87171")}
	}
	var out []string
	if c.Header != "" {
		out = append(out, r.color(c.Header, "#e879f9"))
	}
	if c.Description != "" {
		out = append(out, c.Description)
	}

	cols := append([]string(nil), c.ColumnOrder...)
	if len(rows) > 0 {
		seen := make(map[string]bool, len(cols))
		for _, k := range cols {
			seen[k] = true
		}
		var rest []string
		for k := range rows[0] {
			if !seen[k] {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		cols = append(cols, rest...)
	}

	selected := map[int]bool{}
	if sel := c.Value.Selection; sel != nil {
		selected[sel.Row] = true
		for _, i := range sel.Rows {
			selected[i] = true
		}
	}

	body := make([][]string, 0, len(rows))
	for i, row := range rows {
		mark := ""
		if selected[i] {
			mark = "*"
		}
		line := []string{mark, strconv.Itoa(i)}
		for _, k := range cols {
			v, ok := row[k]
			if !ok || v == nil {
				line = append(line, "")
				continue
			}
			line = append(line, fmt.Sprint(v))
		}
		body = append(body, line)
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(append([]string{"", "#"}, cols...)...).
		Rows(body...).
		StyleFunc(func(int, int) lipgloss.Style { return cell })
	return append(out, strings.Split(t.String(), "\n")...)
}
