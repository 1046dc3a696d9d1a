package client

import (
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// WidgetState is what the user currently sees for one widget.
type WidgetState struct {
	ID    string
	Kind  widget.Kind
	Path  widget.Path
	Value any
	// Error is the local validation message, empty when valid.
	Error string
	// Pending is true while the value is debounced, buffered in a form or
	// waiting for the pass in flight.
	Pending bool
}

// View is a snapshot of what should be displayed. Exactly one of Widgets and
// Exception is set once the first pass has started.
type View struct {
	SessionID string
	PageID    string
	Status    domain.SessionStatus
	Widgets   []*widget.Widget
	Errors    map[string]string
	Exception *protocol.Exception
}

// HasException reports whether the exception view is active.
func (v View) HasException() bool {
	return v.Exception != nil
}
