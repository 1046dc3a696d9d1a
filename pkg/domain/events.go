package domain

import (
	"context"
	"time"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// EventType defines the category of the event.
type EventType string

const (
	EventScriptStart    EventType = "script_start"
	EventScriptFinish   EventType = "script_finish"
	EventWidgetRendered EventType = "widget_rendered"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	PageID    string    `json:"page_id"`
}

// ScriptEvent marks the start or end of one pass.
type ScriptEvent struct {
	EventBase
	Pass     int           `json:"pass"`
	Status   SessionStatus `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// WidgetEvent is emitted for every widget placed by a pass.
type WidgetEvent struct {
	EventBase
	WidgetID string      `json:"widget_id"`
	Kind     widget.Kind `json:"kind"`
	Path     widget.Path `json:"path"`
	Created  bool        `json:"created,omitempty"`
}

// LifecycleHooks defines callbacks for Host observability. Nil callbacks are skipped.
type LifecycleHooks struct {
	OnScriptStart    func(context.Context, *ScriptEvent)
	OnScriptFinish   func(context.Context, *ScriptEvent)
	OnWidgetRendered func(context.Context, *WidgetEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnScriptStart:    chain(h.OnScriptStart, other.OnScriptStart),
		OnScriptFinish:   chain(h.OnScriptFinish, other.OnScriptFinish),
		OnWidgetRendered: chain(h.OnWidgetRendered, other.OnWidgetRendered),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
