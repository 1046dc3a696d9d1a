// Package script runs JavaScript page scripts on goja. A page script is a
// plain file whose top level runs once per pass with these globals:
//
//	ui       the page builder (ui.textInput(label, opts), ui.form(label).ui, ...)
//	session  {id, pageId}
//	console  log, warn and error, routed to the Host logger
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dop251/goja"

	"github.com/trysourcetool/sourcetool/internal/logging"
	"github.com/trysourcetool/sourcetool/pkg/ui"
)

// Program is a compiled page script. It is safe for concurrent use; each pass
// gets a fresh runtime.
type Program struct {
	name   string
	prog   *goja.Program
	logger *slog.Logger
}

// Option configures a Program.
type Option func(*Program)

// WithLogger routes console output to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Program) {
		p.logger = logger
	}
}

// Compile parses source. name labels errors and stack traces.
func Compile(name, source string, opts ...Option) (*Program, error) {
	prog, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	p := &Program{name: name, prog: prog, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CompileFile reads and compiles the script at path.
func CompileFile(path string, opts ...Option) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return Compile(path, string(data), opts...)
}

// Name returns the label given at compile time.
func (p *Program) Name() string {
	return p.name
}

// Script adapts the program to the Host's script signature.
func (p *Program) Script() ui.Script {
	return p.Run
}

// Run executes one pass against b. A thrown value fails the pass with its message and stack.
func (p *Program) Run(b *ui.UIBuilder) error {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	ctx := b.Context()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	_ = vm.Set("ui", bind(vm, b))
	_ = vm.Set("session", map[string]any{"id": b.SessionID(), "pageId": b.PageID()})
	_ = vm.Set("console", p.console(b))

	if _, err := vm.RunProgram(p.prog); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return fmt.Errorf("%s: interrupted: %w", p.name, ctx.Err())
		}
		var ex *goja.Exception
		if errors.As(err, &ex) {
			return &Error{Script: p.name, Message: ex.Value().String(), Stack: ex.String()}
		}
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

func (p *Program) console(b *ui.UIBuilder) map[string]any {
	logger := p.logger.With("script", p.name, "session_id", b.SessionID())
	line := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]any, 0, len(call.Arguments))
			for _, a := range call.Arguments {
				args = append(args, a.Export())
			}
			logger.Log(b.Context(), level, fmt.Sprint(args...))
			return goja.Undefined()
		}
	}
	return map[string]any{
		"log":   line(slog.LevelInfo),
		"warn":  line(slog.LevelWarn),
		"error": line(slog.LevelError),
	}
}

// Error is a value thrown by a script.
type Error struct {
	Script  string
	Message string
	Stack   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Script, e.Message)
}

// StackTrace returns the script-level stack.
func (e *Error) StackTrace() string {
	return e.Stack
}
