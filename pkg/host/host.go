package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/trysourcetool/sourcetool/internal/logging"
	"github.com/trysourcetool/sourcetool/pkg/adapters/memory"
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/session"
	"github.com/trysourcetool/sourcetool/pkg/ui"
)

// SDK identification sent in InitializeHost.
const (
	SDKName = "sourcetool-go"
)

type page struct {
	page   domain.Page
	script ui.Script
}

// Host executes page scripts for the sessions routed to it.
type Host struct {
	apiKey     string
	sdkVersion string
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	manager    *session.Manager
	newID      func() string

	pagesMu sync.RWMutex
	pages   map[string]*page

	mu             sync.Mutex
	conn           ports.Conn
	hostInstanceID string
	sessions       map[string]*hostSession
	wg             sync.WaitGroup
}

// Option configures a Host.
type Option func(*Host)

// WithAPIKey sets the key presented to the relay.
func WithAPIKey(key string) Option {
	return func(h *Host) {
		h.apiKey = key
	}
}

// WithSDKVersion overrides the version reported to the relay.
func WithSDKVersion(v string) Option {
	return func(h *Host) {
		h.sdkVersion = v
	}
}

// WithLogger configures a logger for the Host.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithHooks registers lifecycle callbacks. Repeated calls accumulate.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Host) {
		h.hooks = h.hooks.Merge(hooks)
	}
}

// WithStore persists session snapshots in store. The default is in memory.
func WithStore(store ports.SessionStore, opts ...session.Option) Option {
	return func(h *Host) {
		h.manager = session.NewManager(store, opts...)
	}
}

// WithSessionManager shares an existing manager.
func WithSessionManager(m *session.Manager) Option {
	return func(h *Host) {
		h.manager = m
	}
}

// WithIDGenerator replaces the widget id generator.
func WithIDGenerator(fn func() string) Option {
	return func(h *Host) {
		if fn != nil {
			h.newID = fn
		}
	}
}

// New creates a Host with no pages.
func New(opts ...Option) *Host {
	h := &Host{
		sdkVersion: "dev",
		logger:     logging.NewNop(),
		newID:      uuid.NewString,
		pages:      make(map[string]*page),
		sessions:   make(map[string]*hostSession),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.manager == nil {
		h.manager = session.NewManager(memory.NewStore(), session.WithLogger(h.logger))
	}
	return h
}

// Register adds a page. Page ids must be unique.
func (h *Host) Register(p domain.Page, script ui.Script) error {
	if script == nil {
		return fmt.Errorf("page %q: nil script", p.Name)
	}
	if p.ID == "" {
		p.ID = domain.PageID(p.Route)
	}
	h.pagesMu.Lock()
	defer h.pagesMu.Unlock()
	if _, exists := h.pages[p.ID]; exists {
		return fmt.Errorf("page %q (%s) already registered", p.Name, p.Route)
	}
	if len(p.Path) == 0 {
		p.Path = []int{len(h.pages)}
	}
	h.pages[p.ID] = &page{page: p, script: script}
	return nil
}

// Pages returns the registered pages ordered by navigation path.
func (h *Host) Pages() []domain.Page {
	h.pagesMu.RLock()
	defer h.pagesMu.RUnlock()
	out := make([]domain.Page, 0, len(h.pages))
	for _, p := range h.pages {
		out = append(out, p.page)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Path, out[j].Path
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return out
}

func (h *Host) lookupPage(id string) (*page, bool) {
	h.pagesMu.RLock()
	defer h.pagesMu.RUnlock()
	p, ok := h.pages[id]
	return p, ok
}

// InstanceID returns the id assigned by the relay during the last handshake.
func (h *Host) InstanceID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hostInstanceID
}

// Handshake announces the pages on conn and waits for the relay's acknowledgement.
func (h *Host) Handshake(ctx context.Context, conn ports.Conn) (string, error) {
	pages := h.Pages()
	wire := make([]protocol.Page, 0, len(pages))
	for _, p := range pages {
		wire = append(wire, p.Proto())
	}
	err := conn.Send(ctx, protocol.New(&protocol.InitializeHost{
		APIKey:     h.apiKey,
		SDKName:    SDKName,
		SDKVersion: h.sdkVersion,
		Pages:      wire,
	}))
	if err != nil {
		return "", fmt.Errorf("failed to send InitializeHost: %w", err)
	}

	msg, err := conn.Receive(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to receive handshake reply: %w", err)
	}
	switch p := msg.Payload.(type) {
	case *protocol.InitializeHostCompleted:
		return p.HostInstanceID, nil
	case *protocol.Exception:
		return "", fmt.Errorf("%w: %s", domain.ErrUnauthorized, p.Message)
	}
	return "", fmt.Errorf("%w: unexpected %s during handshake", protocol.ErrMalformed, msg.Kind())
}

// Serve performs the handshake on conn and handles messages until conn or ctx ends.
// Sessions are torn down when Serve returns; their snapshots stay in the store.
func (h *Host) Serve(ctx context.Context, conn ports.Conn) error {
	instanceID, err := h.Handshake(ctx, conn)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.conn = conn
	h.hostInstanceID = instanceID
	h.mu.Unlock()
	h.logger.Info("Host connected", "host_instance_id", instanceID, "pages", len(h.Pages()))

	defer func() {
		cancel()
		h.shutdownSessions()
		h.logger.Info("Host disconnected", "host_instance_id", instanceID)
	}()

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if de, ok := protocol.IsDecodeError(err); ok {
				h.logger.Warn("Dropping undecodable message", "message_id", de.ID, "err", err)
				h.send(ctx, protocol.New(&protocol.Exception{
					Title:   "Malformed message",
					Message: err.Error(),
				}))
				continue
			}
			if errors.Is(err, ports.ErrConnClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		if err := h.Handle(ctx, msg); err != nil {
			h.logger.Warn("Failed to handle message", "kind", msg.Kind(), "message_id", msg.ID, "err", err)
		}
	}
}

// Handle dispatches one inbound message.
func (h *Host) Handle(ctx context.Context, msg *protocol.Message) error {
	if err := msg.Validate(); err != nil {
		h.send(ctx, protocol.New(protocol.NewException(protocol.SessionOf(msg), "Invalid message", err)))
		return err
	}
	h.logger.Debug("Received message", "kind", msg.Kind(), "message_id", msg.ID, "session_id", protocol.SessionOf(msg))

	switch p := msg.Payload.(type) {
	case *protocol.InitializeClient:
		return h.initializeClient(ctx, p)
	case *protocol.RerunPage:
		return h.rerunPage(ctx, p)
	case *protocol.CloseSession:
		h.closeSession(p.SessionID)
		return nil
	case *protocol.Exception:
		h.logger.Warn("Relay reported an error", "session_id", p.SessionID, "title", p.Title, "message", p.Message)
		return nil
	}
	return fmt.Errorf("%w: host does not accept %s", protocol.ErrUnknownKind, msg.Kind())
}

func (h *Host) initializeClient(ctx context.Context, p *protocol.InitializeClient) error {
	pg, ok := h.lookupPage(p.PageID)
	if !ok {
		h.send(ctx, protocol.New(protocol.NewException(p.SessionID, "Page not found",
			fmt.Errorf("%w: %s", domain.ErrPageNotFound, p.PageID))))
		return fmt.Errorf("%w: %s", domain.ErrPageNotFound, p.PageID)
	}
	s, err := h.session(ctx, p.SessionID, pg)
	if err != nil {
		return err
	}
	s.request(nil)
	return nil
}

func (h *Host) rerunPage(ctx context.Context, p *protocol.RerunPage) error {
	pg, ok := h.lookupPage(p.PageID)
	if !ok {
		h.send(ctx, protocol.New(protocol.NewException(p.SessionID, "Page not found",
			fmt.Errorf("%w: %s", domain.ErrPageNotFound, p.PageID))))
		return fmt.Errorf("%w: %s", domain.ErrPageNotFound, p.PageID)
	}
	s, err := h.session(ctx, p.SessionID, pg)
	if err != nil {
		return err
	}
	s.request(p.States)
	return nil
}

// session returns the live session or starts one, resuming its snapshot when
// present. The store is read without holding h.mu.
func (h *Host) session(ctx context.Context, id string, pg *page) (*hostSession, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := h.liveSession(id, pg); ok {
		return s, nil
	}

	snap, resumed, err := h.manager.LoadOrStart(ctx, id, pg.page.ID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[id]; ok && s.page.page.ID == pg.page.ID {
		// Started by a concurrent request while the store was read.
		return s, nil
	} else if ok {
		s.abort()
		delete(h.sessions, id)
	}
	s := newHostSession(ctx, h, id, pg, snap)
	h.sessions[id] = s
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		s.run()
		h.forget(s)
	}()
	h.logger.Info("Session started", "session_id", id, "page_id", pg.page.ID, "resumed", resumed)
	return s, nil
}

// liveSession returns the running session id of page pg. A session of
// another page under the same id is stopped.
func (h *Host) liveSession(id string, pg *page) (*hostSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return nil, false
	}
	if s.page.page.ID == pg.page.ID {
		return s, true
	}
	s.abort()
	delete(h.sessions, id)
	return nil, false
}

func (h *Host) forget(s *hostSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.sessions[s.id]; ok && cur == s {
		delete(h.sessions, s.id)
	}
}

func (h *Host) closeSession(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	s.close()
}

// SessionStatus reports the lifecycle state of a live session.
func (h *Host) SessionStatus(id string) (domain.SessionStatus, bool) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		return "", false
	}
	return s.status(), true
}

func (h *Host) shutdownSessions() {
	h.mu.Lock()
	for _, s := range h.sessions {
		s.abort()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Host) send(ctx context.Context, msg *protocol.Message) {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Send(ctx, msg); err != nil && ctx.Err() == nil {
		h.logger.Warn("Failed to send message", "kind", msg.Kind(), "session_id", protocol.SessionOf(msg), "err", err)
	}
}

func (h *Host) sendErr(ctx context.Context, msg *protocol.Message) error {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return ports.ErrConnClosed
	}
	return conn.Send(ctx, msg)
}
