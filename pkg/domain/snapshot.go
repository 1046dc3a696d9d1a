package domain

import (
	"slices"
	"time"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Snapshot is the persisted state of a session after a pass.
type Snapshot struct {
	SessionID string           `json:"session_id"`
	PageID    string           `json:"page_id"`
	Status    SessionStatus    `json:"status"`
	Widgets   []*widget.Widget `json:"widgets"`
	UpdatedAt time.Time        `json:"updated_at"`
	// Sealed replaces Widgets in snapshots written through an encrypting store.
	Sealed []byte `json:"sealed,omitempty"`
}

// NewSnapshot returns an empty snapshot for a session that has not rendered yet.
func NewSnapshot(sessionID, pageID string) *Snapshot {
	return &Snapshot{
		SessionID: sessionID,
		PageID:    pageID,
		Status:    StatusUninitialized,
		UpdatedAt: time.Now(),
	}
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Widgets = make([]*widget.Widget, len(s.Widgets))
	for i, w := range s.Widgets {
		out.Widgets[i] = w.Clone()
	}
	out.Sealed = slices.Clone(s.Sealed)
	return &out
}
