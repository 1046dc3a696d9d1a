package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/widget"
)

type redactMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware resets, before saving, the value of every widget whose
// label matches one of patterns. A resumed session shows those widgets at
// their default value.
func NewRedactMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &redactMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	// The Host keeps using snap after Save returns.
	cloned := snap.Clone()
	for _, w := range cloned.Widgets {
		if m.sensitive(labelOf(w.Content)) {
			widget.ResetValue(w.Content)
		}
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *redactMiddleware) sensitive(label string) bool {
	if label == "" {
		return false
	}
	for _, p := range m.patterns {
		if p.MatchString(label) {
			return true
		}
	}
	return false
}

func (m *redactMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *redactMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func labelOf(c widget.Content) string {
	switch c := c.(type) {
	case *widget.TextInput:
		return c.Label
	case *widget.TextArea:
		return c.Label
	case *widget.NumberInput:
		return c.Label
	case *widget.DateInput:
		return c.Label
	case *widget.DateTimeInput:
		return c.Label
	case *widget.TimeInput:
		return c.Label
	case *widget.Selectbox:
		return c.Label
	case *widget.MultiSelect:
		return c.Label
	case *widget.Radio:
		return c.Label
	case *widget.Checkbox:
		return c.Label
	case *widget.CheckboxGroup:
		return c.Label
	}
	return ""
}
