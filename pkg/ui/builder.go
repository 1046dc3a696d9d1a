package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/trysourcetool/sourcetool/pkg/reconcile"
	"github.com/trysourcetool/sourcetool/pkg/validation"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Script is a page script. A returned error or a panic fails the pass.
type Script func(ui *UIBuilder) error

// EmitFunc receives every widget as soon as it is placed.
type EmitFunc func(ctx context.Context, w *widget.Widget, created bool) error

// ErrPassAborted is reported when a widget could not be placed or emitted.
var ErrPassAborted = errors.New("script pass aborted")

// Pass holds the state of one script execution.
// It is not safe for concurrent use: builders must be called from the script goroutine.
type Pass struct {
	ctx       context.Context
	sessionID string
	pageID    string
	rec       *reconcile.Reconciler
	emit      EmitFunc
	err       error
}

// NewPass prepares a pass that reconciles against rec and reports widgets to emit.
func NewPass(ctx context.Context, sessionID, pageID string, rec *reconcile.Reconciler, emit EmitFunc) *Pass {
	if emit == nil {
		emit = func(context.Context, *widget.Widget, bool) error { return nil }
	}
	return &Pass{
		ctx:       ctx,
		sessionID: sessionID,
		pageID:    pageID,
		rec:       rec,
		emit:      emit,
	}
}

// Root returns the builder for the top level of the page.
func (p *Pass) Root() *UIBuilder {
	return &UIBuilder{pass: p, cursor: new(int)}
}

// Err returns the first placement or emit failure, if any.
// After a failure every builder call is a no-op returning zero values.
func (p *Pass) Err() error {
	return p.err
}

// Result finishes the pass.
func (p *Pass) Result() reconcile.Result {
	return p.rec.Result()
}

// UIBuilder places widgets inside one container.
type UIBuilder struct {
	pass   *Pass
	path   widget.Path
	cursor *int
	// reset clears descendants of a form submitted with ClearOnSubmit.
	reset bool
}

// Context returns the context of the pass. It is cancelled when the session closes.
func (b *UIBuilder) Context() context.Context {
	return b.pass.ctx
}

// SessionID returns the session the pass runs for.
func (b *UIBuilder) SessionID() string {
	return b.pass.sessionID
}

// PageID returns the page being executed.
func (b *UIBuilder) PageID() string {
	return b.pass.pageID
}

func (b *UIBuilder) child(path widget.Path, reset bool) *UIBuilder {
	return &UIBuilder{pass: b.pass, path: path, cursor: new(int), reset: reset}
}

// place declares content at the next sibling slot. The returned flag is the
// momentary value of a button or form, which is cleared in the tree before the
// widget is emitted so it is never echoed back as true.
func (b *UIBuilder) place(content widget.Content) (*widget.Widget, bool) {
	p := b.pass
	if p.err != nil {
		return nil, false
	}
	if err := p.ctx.Err(); err != nil {
		p.err = fmt.Errorf("%w: %w", ErrPassAborted, err)
		return nil, false
	}

	path := b.path.Child(*b.cursor)
	*b.cursor++

	w, err := p.rec.Place(path, content)
	if err != nil {
		p.err = fmt.Errorf("%w: %w", ErrPassAborted, err)
		return nil, false
	}
	prev, existed := p.rec.Previous().Lookup(path)
	created := !existed || prev.ID != w.ID

	momentary := false
	switch c := w.Content.(type) {
	case *widget.Button:
		momentary = c.Value
	case *widget.Form:
		momentary = c.Value
	}
	widget.ResetMomentary(w.Content)

	if b.reset {
		// The caller keeps reading the submitted value from content.
		cleared := widget.Clone(w.Content)
		widget.ResetValue(cleared)
		w.Content = cleared
	}

	if err := p.emit(p.ctx, w, created); err != nil {
		p.err = fmt.Errorf("%w: %w", ErrPassAborted, err)
		return nil, false
	}
	return w, momentary
}

// formSubmitted reports whether the previous tree holds a submitted form at path
// whose descendants all validate.
func (b *UIBuilder) formSubmitted(path widget.Path) bool {
	prev := b.pass.rec.Previous()
	if _, ok := prev.Lookup(path); !ok {
		return false
	}
	return len(validation.ValidateTree(prev.Descendants(path))) == 0
}
