package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/trysourcetool/sourcetool/pkg/client"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Verb is the action of a typed command.
type Verb string

const (
	VerbEdit   Verb = "edit"
	VerbClick  Verb = "click"
	VerbSubmit Verb = "submit"
	VerbSelect Verb = "select"
	VerbClear  Verb = "clear"
	VerbHelp   Verb = "help"
	VerbQuit   Verb = "quit"
)

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// Help lists the commands understood by Parse.
const Help = `Commands:
  <n> <value>        set widget n (options by name or index, lists comma separated)
  click <n>          press button n or submit form n
  submit <n>         submit form n
  select <n> <rows>  select table rows, e.g. "select 3 0,2"
  clear <n>          clear widget n
  help               show this help
  quit               leave the session`

// Command is one parsed input line.
type Command struct {
	Verb   Verb
	Target int
	Arg    string
}

// Parse reads one input line.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, errors.New("empty command")
	}
	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(head) {
	case "q", "quit", "exit":
		return Command{Verb: VerbQuit}, nil
	case "h", "help", "?":
		return Command{Verb: VerbHelp}, nil
	case "click", "submit", "select", "clear":
		verb := Verb(strings.ToLower(head))
		num, arg, _ := strings.Cut(rest, " ")
		n, err := target(num)
		if err != nil {
			return Command{}, err
		}
		arg = strings.TrimSpace(arg)
		if verb == VerbSelect && arg == "" {
			return Command{}, errors.New("select needs rows")
		}
		return Command{Verb: verb, Target: n, Arg: arg}, nil
	}

	n, err := target(head)
	if err != nil {
		return Command{}, fmt.Errorf("unknown command %q", head)
	}
	return Command{Verb: VerbEdit, Target: n, Arg: rest}, nil
}

func target(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid widget number %q", s)
	}
	return n, nil
}

// Execute applies cmd to c. targets are the ones returned by the last Render.
func Execute(ctx context.Context, c *client.Client, targets []Target, cmd Command) error {
	switch cmd.Verb {
	case VerbQuit:
		return ErrQuit
	case VerbHelp:
		return nil
	}
	if cmd.Target < 1 || cmd.Target > len(targets) {
		return fmt.Errorf("no widget %d on screen", cmd.Target)
	}
	w := targets[cmd.Target-1].Widget

	switch cmd.Verb {
	case VerbClick:
		return c.Click(ctx, w.ID)
	case VerbSubmit:
		return c.Submit(ctx, w.ID)
	case VerbSelect:
		rows, err := ints(cmd.Arg)
		if err != nil {
			return err
		}
		if len(rows) == 1 {
			return c.SelectRow(ctx, w.ID, rows[0])
		}
		return c.SelectRows(ctx, w.ID, rows)
	case VerbClear:
		value, err := cleared(w.Content)
		if err != nil {
			return err
		}
		return c.Edit(ctx, w.ID, value)
	}

	switch w.Content.(type) {
	case *widget.Button, *widget.Form:
		return c.Click(ctx, w.ID)
	}
	value, err := Value(w.Content, cmd.Arg)
	if err != nil {
		return err
	}
	return c.Edit(ctx, w.ID, value)
}

func cleared(c widget.Content) (any, error) {
	switch c.(type) {
	case *widget.Checkbox:
		return false, nil
	case *widget.MultiSelect, *widget.CheckboxGroup:
		return []int{}, nil
	case *widget.Button, *widget.Form, *widget.Table:
		return nil, fmt.Errorf("%s cannot be cleared", c.Kind())
	}
	return nil, nil
}

// Value converts typed text into the value Edit expects for c.
func Value(c widget.Content, arg string) (any, error) {
	switch c := c.(type) {
	case *widget.TextInput, *widget.TextArea:
		return strings.ReplaceAll(arg, `\n`, "\n"), nil
	case *widget.NumberInput:
		if arg == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", arg)
		}
		return f, nil
	case *widget.DateInput, *widget.DateTimeInput, *widget.TimeInput:
		return arg, nil
	case *widget.Selectbox:
		return option(c.Options, arg)
	case *widget.Radio:
		return option(c.Options, arg)
	case *widget.MultiSelect:
		return options(c.Options, arg)
	case *widget.CheckboxGroup:
		return options(c.Options, arg)
	case *widget.Checkbox:
		switch strings.ToLower(arg) {
		case "", "x", "y", "yes", "true", "1", "on":
			return true, nil
		case "n", "no", "false", "0", "off":
			return false, nil
		}
		return nil, fmt.Errorf("not a yes/no answer: %q", arg)
	}
	return nil, fmt.Errorf("%s takes no typed value", c.Kind())
}

// option resolves an option by name (case insensitive) or index.
func option(opts []string, arg string) (any, error) {
	if arg == "" {
		return nil, nil
	}
	for i, o := range opts {
		if strings.EqualFold(o, arg) {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(arg); err == nil && i >= 0 && i < len(opts) {
		return i, nil
	}
	return nil, fmt.Errorf("no option %q", arg)
}

func options(opts []string, arg string) (any, error) {
	out := []int{}
	if arg == "" {
		return out, nil
	}
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := option(opts, part)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, i.(int)) {
			out = append(out, i.(int))
		}
	}
	return out, nil
}

func ints(arg string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(arg, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid row %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
