package sourcetool

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/trysourcetool/sourcetool/internal/logging"
	"github.com/trysourcetool/sourcetool/pkg/adapters/websocket"
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/host"
	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/session"
	"github.com/trysourcetool/sourcetool/pkg/ui"
)

// Default reconnect backoff bounds used by Listen.
const (
	DefaultMinBackoff = 250 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
)

// DialFunc opens a transport to the relay at endpoint.
type DialFunc func(ctx context.Context, endpoint string) (ports.Conn, error)

// Sourcetool is a Host bundled with the code that keeps it connected to a relay.
type Sourcetool struct {
	host   *host.Host
	logger *slog.Logger

	apiKey     string
	hostOpts   []host.Option
	dial       DialFunc
	minBackoff time.Duration
	maxBackoff time.Duration
	settings   websocket.Settings
}

// Option configures a Sourcetool.
type Option func(*Sourcetool)

// WithAPIKey sets the key presented to the relay.
func WithAPIKey(key string) Option {
	return func(s *Sourcetool) {
		s.apiKey = key
	}
}

// WithLogger sets the logger shared by the Host and the reconnect loop.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sourcetool) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on the Host.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Sourcetool) {
		s.hostOpts = append(s.hostOpts, host.WithHooks(hooks))
	}
}

// WithStore persists session snapshots in store.
func WithStore(store ports.SessionStore, opts ...session.Option) Option {
	return func(s *Sourcetool) {
		s.hostOpts = append(s.hostOpts, host.WithStore(store, opts...))
	}
}

// WithBackoff bounds the delay between reconnect attempts.
func WithBackoff(minDelay, maxDelay time.Duration) Option {
	return func(s *Sourcetool) {
		s.minBackoff = minDelay
		s.maxBackoff = maxDelay
	}
}

// WithTransport sets the websocket timeouts used by the default dialer.
func WithTransport(settings websocket.Settings) Option {
	return func(s *Sourcetool) {
		s.settings = settings
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(dial DialFunc) Option {
	return func(s *Sourcetool) {
		s.dial = dial
	}
}

// New creates a Sourcetool with no pages.
func New(opts ...Option) *Sourcetool {
	s := &Sourcetool{
		logger:     logging.NewNop(),
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
		settings:   websocket.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxBackoff < s.minBackoff {
		s.maxBackoff = s.minBackoff
	}
	if s.dial == nil {
		s.dial = s.dialWebsocket
	}

	hostOpts := append([]host.Option{
		host.WithAPIKey(s.apiKey),
		host.WithSDKVersion(Version),
		host.WithLogger(s.logger),
	}, s.hostOpts...)
	s.host = host.New(hostOpts...)
	return s
}

// Page registers a script served at route.
func (s *Sourcetool) Page(route, name string, script ui.Script, groups ...string) error {
	return s.host.Register(domain.NewPage(name, route, groups...), script)
}

// Register adds a page built elsewhere, such as a loaded script file.
func (s *Sourcetool) Register(p domain.Page, script ui.Script) error {
	return s.host.Register(p, script)
}

// Host exposes the underlying Host.
func (s *Sourcetool) Host() *host.Host {
	return s.host
}

// Serve runs the Host over an already open connection.
func (s *Sourcetool) Serve(ctx context.Context, conn ports.Conn) error {
	return s.host.Serve(ctx, conn)
}

// Listen connects to the relay at endpoint and serves until ctx is done.
// Dropped connections are re-established with exponential backoff. A
// rejected API key ends Listen.
func (s *Sourcetool) Listen(ctx context.Context, endpoint string) error {
	if len(s.host.Pages()) == 0 {
		return errors.New("no pages registered")
	}

	delay := s.minBackoff
	failures := 0
	for {
		before := s.host.InstanceID()
		conn, err := s.dial(ctx, endpoint)
		if err == nil {
			err = s.host.Serve(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, domain.ErrUnauthorized) {
			return err
		}
		if s.host.InstanceID() != before {
			// The last connection got through the handshake.
			delay = s.minBackoff
			failures = 0
		}
		if err != nil {
			failures++
			s.logger.Warn("Relay connection failed", "endpoint", endpoint, "failures", failures, "retry_in", delay, "err", err)
		} else {
			s.logger.Info("Relay connection closed", "endpoint", endpoint, "retry_in", delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		delay = min(delay*2, s.maxBackoff)
	}
}

func (s *Sourcetool) dialWebsocket(ctx context.Context, endpoint string) (ports.Conn, error) {
	conn, err := websocket.Dial(ctx, endpoint, http.Header{}, s.settings)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
