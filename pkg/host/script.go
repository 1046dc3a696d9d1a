package host

import (
	"fmt"
	"runtime/debug"

	"github.com/trysourcetool/sourcetool/pkg/ui"
)

// ScriptError wraps a failure raised by a page script.
type ScriptError struct {
	Err   error
	Stack string
	Panic bool
}

func (e *ScriptError) Error() string {
	if e.Panic {
		return fmt.Sprintf("script panicked: %v", e.Err)
	}
	return e.Err.Error()
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// StackTrace implements protocol.StackTracer.
func (e *ScriptError) StackTrace() string {
	return e.Stack
}

// runScript executes script and converts panics into a *ScriptError.
func runScript(script ui.Script, b *ui.UIBuilder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok {
				perr = fmt.Errorf("%v", r)
			}
			err = &ScriptError{Err: perr, Stack: string(debug.Stack()), Panic: true}
		}
	}()
	if err := script(b); err != nil {
		return &ScriptError{Err: err}
	}
	return nil
}
