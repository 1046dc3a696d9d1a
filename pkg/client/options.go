package client

import (
	"log/slog"
	"time"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// DefaultDebounce returns the trailing debounce window per widget kind.
// Kinds that are absent commit immediately.
func DefaultDebounce() map[widget.Kind]time.Duration {
	return map[widget.Kind]time.Duration{
		widget.KindTextInput:     time.Second,
		widget.KindTextArea:      time.Second,
		widget.KindNumberInput:   time.Second,
		widget.KindDateInput:     300 * time.Millisecond,
		widget.KindDateTimeInput: 300 * time.Millisecond,
		widget.KindTimeInput:     300 * time.Millisecond,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithDebounce overrides the window of one kind. Zero disables debouncing for it.
func WithDebounce(kind widget.Kind, d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			delete(c.windows, kind)
			return
		}
		c.windows[kind] = d
	}
}

// WithClock injects the time source used for debounce deadlines.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
