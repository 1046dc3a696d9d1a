package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/trysourcetool/sourcetool/internal/logging"
	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
)

const shutdownTimeout = 5 * time.Second

// Server accepts Host and Client connections and routes between them.
type Server struct {
	registry         *Registry
	apiKeys          map[string]struct{}
	logger           *slog.Logger
	outboundBuffer   int
	rateLimit        rate.Limit
	rateBurst        int
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	orphanGrace      time.Duration
	hooks            Hooks
	newID            func() string
}

// NewServer creates a relay with an empty registry.
func NewServer(opts ...Option) *Server {
	s := &Server{
		apiKeys:          make(map[string]struct{}),
		logger:           logging.NewNop(),
		outboundBuffer:   DefaultOutboundBuffer,
		handshakeTimeout: DefaultHandshakeTimeout,
		writeTimeout:     DefaultWriteTimeout,
		orphanGrace:      DefaultOrphanGrace,
		newID:            uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	return s
}

// Registry exposes the routing tables for inspection.
func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) newPeer(ctx context.Context, id string, conn ports.Conn) *peer {
	p := newPeer(id, conn, s.outboundBuffer, s.writeTimeout, s.logger)
	go p.run(ctx)
	return p
}

func (s *Server) limiter() *rate.Limiter {
	if s.rateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(s.rateLimit, s.rateBurst)
}

func (s *Server) authorize(key string) bool {
	if key == "" {
		return false
	}
	if len(s.apiKeys) == 0 {
		return true
	}
	_, ok := s.apiKeys[key]
	return ok
}

// handshake receives the first message of a connection.
func (s *Server) handshake(ctx context.Context, conn ports.Conn) (*protocol.Message, error) {
	if s.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.handshakeTimeout)
		defer cancel()
	}
	msg, err := conn.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	return msg, nil
}

func (s *Server) reject(ctx context.Context, p *peer, title string, err error) {
	s.logger.Warn("Rejecting connection", "peer", p.id, "reason", title, "err", err)
	fire(s.hooks.OnRejected, title)
	_ = p.send(ctx, protocol.New(protocol.NewException("", title, err)))
}

// receive reads the next message, answering undecodable frames with an Exception.
// It returns false when the connection is done.
func (s *Server) receive(ctx context.Context, conn ports.Conn, p *peer, limiter *rate.Limiter) (*protocol.Message, bool, error) {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if de, ok := protocol.IsDecodeError(err); ok {
				s.logger.Warn("Dropping undecodable message", "peer", p.id, "message_id", de.ID, "err", err)
				_ = p.send(ctx, protocol.New(protocol.NewException("", "Malformed message", err)))
				continue
			}
			if errors.Is(err, ports.ErrConnClosed) || ctx.Err() != nil {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("receive: %w", err)
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, false, nil
		}
		if err := msg.Validate(); err != nil {
			s.logger.Warn("Rejecting invalid message", "peer", p.id, "kind", msg.Kind(), "err", err)
			_ = p.send(ctx, protocol.New(protocol.NewException(protocol.SessionOf(msg), "Invalid message", err)))
			continue
		}
		return msg, true, nil
	}
}

// ServeHost runs one Host connection until it closes.
func (s *Server) ServeHost(ctx context.Context, conn ports.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := s.newID()
	p := s.newPeer(ctx, "host:"+id, conn)
	defer p.shutdown(shutdownTimeout)

	msg, err := s.handshake(ctx, conn)
	if err != nil {
		s.reject(ctx, p, "Handshake failed", err)
		return err
	}
	init, ok := msg.Payload.(*protocol.InitializeHost)
	if !ok {
		err := fmt.Errorf("%w: expected %s, got %s", ErrHandshake, protocol.KindInitializeHost, msg.Kind())
		s.reject(ctx, p, "Handshake failed", err)
		return err
	}
	if !s.authorize(init.APIKey) {
		err := fmt.Errorf("%w: invalid api key", domain.ErrUnauthorized)
		s.reject(ctx, p, "Unauthorized", err)
		return err
	}

	link := &hostLink{
		info: HostInfo{
			ID:          id,
			SDKName:     init.SDKName,
			SDKVersion:  init.SDKVersion,
			Pages:       init.Pages,
			ConnectedAt: time.Now(),
		},
		peer: p,
	}
	// Queued ahead of anything routed to the Host once it is registered.
	if err := p.send(ctx, protocol.New(&protocol.InitializeHostCompleted{HostInstanceID: id})); err != nil {
		return nil
	}
	adopted := s.registry.addHost(link)
	s.logger.Info("Host connected", "host_instance_id", id, "sdk", init.SDKName, "sdk_version", init.SDKVersion, "pages", len(init.Pages), "adopted", len(adopted))
	fire(s.hooks.OnHostConnected, link.info)
	defer s.hostGone(ctx, link)

	for _, sess := range adopted {
		s.logger.Info("Session adopted", "session_id", sess.id, "page_id", sess.pageID, "host_instance_id", id)
		if err := p.send(ctx, protocol.New(&protocol.InitializeClient{SessionID: sess.id, PageID: sess.pageID})); err != nil {
			return nil
		}
	}

	limiter := s.limiter()
	for {
		msg, ok, err := s.receive(ctx, conn, p, limiter)
		if !ok {
			return err
		}
		s.fromHost(ctx, link, msg)
	}
}

func (s *Server) fromHost(ctx context.Context, link *hostLink, msg *protocol.Message) {
	switch p := msg.Payload.(type) {
	case *protocol.RenderWidget, *protocol.ScriptFinished, *protocol.Exception:
		sid := protocol.SessionOf(msg)
		if sid == "" {
			if ex, ok := p.(*protocol.Exception); ok {
				s.logger.Warn("Host reported an error", "host_instance_id", link.info.ID, "title", ex.Title, "message", ex.Message)
			}
			return
		}
		sess, ok := s.registry.session(sid)
		if !ok || sess.owner() != link.info.ID {
			s.logger.Debug("Dropping message for unknown session", "kind", msg.Kind(), "session_id", sid)
			return
		}
		// Fan-out shares the Host's read loop: a client with a full FIFO holds
		// back the Host's other sessions until it drains or its write times out.
		for _, c := range sess.peers() {
			if err := c.send(ctx, msg); err != nil {
				s.logger.Debug("Client went away during fan-out", "peer", c.id, "session_id", sid, "err", err)
			}
		}
		fire2(s.hooks.OnMessage, HostToClient, msg.Kind())
	default:
		err := fmt.Errorf("%w: %s", ErrUnexpected, msg.Kind())
		s.logger.Warn("Unexpected message from host", "host_instance_id", link.info.ID, "kind", msg.Kind())
		_ = link.peer.send(ctx, protocol.New(protocol.NewException("", "Unexpected message", err)))
	}
}

// hostGone removes a disconnected Host and orphans its sessions. A Host that
// registers the same page within the grace period adopts them.
func (s *Server) hostGone(ctx context.Context, link *hostLink) {
	orphaned := s.registry.removeHost(link.info.ID)
	s.logger.Info("Host disconnected", "host_instance_id", link.info.ID, "sessions", len(orphaned))
	fire(s.hooks.OnHostDisconnected, link.info)

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	for _, sess := range orphaned {
		ex := protocol.NewException(sess.id, "Host disconnected", fmt.Errorf("%w: %s", ErrHostGone, link.info.ID))
		// A pass cut short by the disconnect is finished as failed.
		msgs := []*protocol.Message{
			protocol.New(ex),
			protocol.New(&protocol.ScriptFinished{SessionID: sess.id, Status: protocol.StatusFailure}),
		}
		for _, c := range sess.peers() {
			for _, msg := range msgs {
				_ = c.send(nctx, msg)
			}
		}
	}
	if len(orphaned) == 0 {
		return
	}
	if s.orphanGrace <= 0 {
		s.expire(orphaned)
		return
	}
	time.AfterFunc(s.orphanGrace, func() { s.expire(orphaned) })
}

// expire closes the sessions that are still orphaned and disconnects their
// clients so they start over.
func (s *Server) expire(sessions []*session) {
	for _, sess := range sessions {
		clients, ok := sess.expire()
		if !ok {
			continue
		}
		s.registry.closeSession(sess)
		s.logger.Info("Orphaned session expired", "session_id", sess.id, "clients", len(clients))
		for _, c := range clients {
			c.drain()
		}
		fire(s.hooks.OnSessionClosed, sess.info())
	}
}

// ServeClient runs one Client connection until it closes.
func (s *Server) ServeClient(ctx context.Context, conn ports.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := s.newPeer(ctx, "client:"+s.newID(), conn)
	defer p.shutdown(shutdownTimeout)

	msg, err := s.handshake(ctx, conn)
	if err != nil {
		s.reject(ctx, p, "Handshake failed", err)
		return err
	}
	init, ok := msg.Payload.(*protocol.InitializeClient)
	if !ok {
		err := fmt.Errorf("%w: expected %s, got %s", ErrHandshake, protocol.KindInitializeClient, msg.Kind())
		s.reject(ctx, p, "Handshake failed", err)
		return err
	}
	link, ok := s.registry.hostFor(init.PageID)
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrPageNotFound, init.PageID)
		s.reject(ctx, p, "Page not found", err)
		return err
	}

	sess := s.attach(init, link, p)
	defer s.detach(ctx, sess, p)

	if err := p.send(ctx, protocol.New(&protocol.InitializeClientCompleted{SessionID: sess.id})); err != nil {
		return nil
	}
	s.toHost(ctx, sess, p, protocol.New(&protocol.InitializeClient{SessionID: sess.id, PageID: sess.pageID}))

	limiter := s.limiter()
	for {
		msg, ok, err := s.receive(ctx, conn, p, limiter)
		if !ok {
			return err
		}
		switch pl := msg.Payload.(type) {
		case *protocol.RerunPage:
			if pl.SessionID != sess.id {
				err := fmt.Errorf("%w: session %s is not attached", domain.ErrSessionNotFound, pl.SessionID)
				_ = p.send(ctx, protocol.New(protocol.NewException(sess.id, "Session mismatch", err)))
				continue
			}
			if pl.PageID == "" {
				pl.PageID = sess.pageID
			}
			s.toHost(ctx, sess, p, msg)
		case *protocol.CloseSession:
			s.logger.Debug("Client closed session", "peer", p.id, "session_id", sess.id)
			return nil
		default:
			err := fmt.Errorf("%w: %s", ErrUnexpected, msg.Kind())
			_ = p.send(ctx, protocol.New(protocol.NewException(sess.id, "Unexpected message", err)))
		}
	}
}

// attach joins a live session of the same page or opens a fresh one.
func (s *Server) attach(init *protocol.InitializeClient, link *hostLink, p *peer) *session {
	if init.SessionID != "" {
		if sess, ok := s.registry.session(init.SessionID); ok && sess.pageID == init.PageID {
			if joined, adopted := sess.join(p, link.info.ID); joined {
				s.logger.Info("Client reattached", "peer", p.id, "session_id", sess.id, "adopted", adopted)
				fire(s.hooks.OnClientAttached, sess.info())
				return sess
			}
		}
		s.logger.Info("Discarding stale session", "session_id", init.SessionID, "page_id", init.PageID)
	}

	sess := s.registry.openSession(s.newID(), init.PageID, link.info.ID)
	sess.join(p, link.info.ID)
	s.logger.Info("Session opened", "peer", p.id, "session_id", sess.id, "page_id", sess.pageID, "host_instance_id", link.info.ID)
	info := sess.info()
	fire(s.hooks.OnSessionOpened, info)
	fire(s.hooks.OnClientAttached, info)
	return sess
}

// detach removes a client; the last one closes the session on the Host.
func (s *Server) detach(ctx context.Context, sess *session, p *peer) {
	last := sess.detach(p.id)
	fire(s.hooks.OnClientDetached, sess.info())
	if !last || !s.registry.closeSession(sess) {
		return
	}
	s.logger.Info("Session closed", "session_id", sess.id)
	fire(s.hooks.OnSessionClosed, sess.info())

	link, ok := s.registry.host(sess.owner())
	if !ok {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := link.peer.send(nctx, protocol.New(&protocol.CloseSession{SessionID: sess.id})); err != nil {
		s.logger.Debug("Host went away before CloseSession", "session_id", sess.id, "err", err)
	}
}

// toHost forwards msg to the session's Host. When no Host takes it, the
// sender gets an Exception, and a rerun is finished as failed so the client
// can commit again.
func (s *Server) toHost(ctx context.Context, sess *session, p *peer, msg *protocol.Message) {
	owner := sess.owner()
	if link, ok := s.registry.host(owner); ok {
		if err := link.peer.send(ctx, msg); err == nil {
			fire2(s.hooks.OnMessage, ClientToHost, msg.Kind())
			return
		}
	}
	err := fmt.Errorf("%w: %s", ErrHostGone, owner)
	_ = p.send(ctx, protocol.New(protocol.NewException(sess.id, "Host disconnected", err)))
	if _, ok := msg.Payload.(*protocol.RerunPage); ok {
		_ = p.send(ctx, protocol.New(&protocol.ScriptFinished{SessionID: sess.id, Status: protocol.StatusFailure}))
	}
}
