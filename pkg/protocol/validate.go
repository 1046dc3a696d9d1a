package protocol

import (
	"fmt"
)

// Validate checks payload invariants that the JSON shape alone cannot express.
func (m *Message) Validate() error {
	if m == nil || m.Payload == nil {
		return fmt.Errorf("%w: empty payload", ErrInvalidMessage)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if err := validatePayload(m.Payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMessage, m.Payload.Kind(), err)
	}
	return nil
}

func validatePayload(p Payload) error {
	switch p := p.(type) {
	case *InitializeHost:
		for i, page := range p.Pages {
			if page.ID == "" {
				return fmt.Errorf("page %d has no id", i)
			}
			for _, n := range page.Path {
				if n < 0 {
					return fmt.Errorf("page %s has a negative path index", page.ID)
				}
			}
		}
	case *InitializeHostCompleted:
		if p.HostInstanceID == "" {
			return fmt.Errorf("host instance id is required")
		}
	case *InitializeClient:
		if p.PageID == "" {
			return fmt.Errorf("page id is required")
		}
	case *InitializeClientCompleted:
		return requireSession(p.SessionID)
	case *RenderWidget:
		if err := requireSession(p.SessionID); err != nil {
			return err
		}
		if err := p.Path.Validate(); err != nil {
			return err
		}
		if p.Widget == nil {
			return fmt.Errorf("widget is required")
		}
		if err := p.Widget.Validate(); err != nil {
			return err
		}
		if !p.Widget.Path.Equal(p.Path) {
			return fmt.Errorf("widget path %s does not match %s", p.Widget.Path, p.Path)
		}
	case *RerunPage:
		if err := requireSession(p.SessionID); err != nil {
			return err
		}
		for i, w := range p.States {
			if w == nil {
				return fmt.Errorf("state %d is empty", i)
			}
			if err := w.Validate(); err != nil {
				return err
			}
		}
	case *CloseSession:
		return requireSession(p.SessionID)
	case *ScriptFinished:
		if err := requireSession(p.SessionID); err != nil {
			return err
		}
		if !p.Status.Valid() {
			return fmt.Errorf("unknown status %q", p.Status)
		}
	case *Exception:
		if p.Message == "" && p.Title == "" {
			return fmt.Errorf("exception needs a title or a message")
		}
	default:
		return fmt.Errorf("unsupported payload %T", p)
	}
	return nil
}

func requireSession(id string) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	return nil
}
