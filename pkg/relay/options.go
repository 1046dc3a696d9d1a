package relay

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultOutboundBuffer   = 256
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultOrphanGrace      = 30 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithAPIKeys restricts which Hosts may connect.
// Without keys any non-empty key is accepted.
func WithAPIKeys(keys ...string) Option {
	return func(s *Server) {
		for _, k := range keys {
			if k != "" {
				s.apiKeys[k] = struct{}{}
			}
		}
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithOutboundBuffer sets the capacity of each connection's outbound FIFO.
func WithOutboundBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.outboundBuffer = n
		}
	}
}

// WithRateLimit limits inbound messages per connection. A zero limit disables it.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *Server) {
		s.rateLimit = limit
		s.rateBurst = max(burst, 1)
	}
}

// WithHandshakeTimeout bounds how long a new connection may take to identify itself.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.handshakeTimeout = d
	}
}

// WithWriteTimeout bounds each outbound write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// WithOrphanGrace sets how long the sessions of a disconnected Host wait for
// another Host of the same page. Zero closes them at once.
func WithOrphanGrace(d time.Duration) Option {
	return func(s *Server) {
		s.orphanGrace = d
	}
}

// WithHooks registers observers of relay activity.
func WithHooks(hooks Hooks) Option {
	return func(s *Server) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithIDGenerator overrides how session and host-instance ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Server) {
		s.newID = gen
	}
}

// WithRegistry shares a registry, mainly for inspection in tests.
func WithRegistry(r *Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}
