// Package websocket carries protocol messages over gorilla/websocket text frames.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
)

// Settings tunes a connection. Zero timeouts disable the matching deadline.
type Settings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadTimeout is the longest silence tolerated from the peer. Pings are sent
	// at half this interval so an idle but healthy peer stays alive.
	ReadTimeout time.Duration
	// ReadLimit caps the size of one frame in bytes.
	ReadLimit int64
	// InboundBuffer is the number of frames read ahead of Receive.
	InboundBuffer int
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		ReadLimit:        4 << 20,
		InboundBuffer:    16,
	}
}

// Conn implements ports.Conn over one websocket.
// A single reader goroutine feeds Receive; writes are serialized.
type Conn struct {
	ws       *websocket.Conn
	settings Settings

	writeMu sync.Mutex

	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

var _ ports.Conn = (*Conn)(nil)

// Wrap takes ownership of an established websocket.
func Wrap(ws *websocket.Conn, settings Settings) *Conn {
	if settings.InboundBuffer <= 0 {
		settings.InboundBuffer = DefaultSettings().InboundBuffer
	}
	c := &Conn{
		ws:       ws,
		settings: settings,
		frames:   make(chan []byte, settings.InboundBuffer),
		done:     make(chan struct{}),
	}
	if settings.ReadLimit > 0 {
		ws.SetReadLimit(settings.ReadLimit)
	}
	if settings.ReadTimeout > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		})
		go c.ping()
	}
	go c.read()
	return c
}

// Dial connects to a relay endpoint such as ws://host:port/ws/host.
func Dial(ctx context.Context, url string, header http.Header, settings Settings) (*Conn, error) {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: settings.HandshakeTimeout,
	}
	ws, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return Wrap(ws, settings), nil
}

// Upgrader upgrades inbound HTTP requests to Conns.
type Upgrader struct {
	upgrader websocket.Upgrader
	settings Settings
}

// NewUpgrader accepts any origin unless checkOrigin is set.
func NewUpgrader(settings Settings, checkOrigin func(r *http.Request) bool) *Upgrader {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Upgrader{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: settings.HandshakeTimeout,
			CheckOrigin:      checkOrigin,
		},
		settings: settings,
	}
}

// Upgrade completes the websocket handshake. On failure a response has already been written.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	return Wrap(ws, u.settings), nil
}

func (c *Conn) read() {
	defer close(c.frames)
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown()
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) ping() {
	ticker := time.NewTicker(c.settings.ReadTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(c.writeTimeout())
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeTimeout() time.Duration {
	if c.settings.WriteTimeout > 0 {
		return c.settings.WriteTimeout
	}
	return DefaultSettings().WriteTimeout
}

// Send encodes msg as one text frame.
func (c *Conn) Send(ctx context.Context, msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return c.SendRaw(ctx, data)
}

// SendRaw writes an already encoded frame.
func (c *Conn) SendRaw(ctx context.Context, data []byte) error {
	select {
	case <-c.done:
		return ports.ErrConnClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var deadline time.Time
	if c.settings.WriteTimeout > 0 {
		deadline = time.Now().Add(c.settings.WriteTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		if c.isClosed() || errors.Is(err, websocket.ErrCloseSent) {
			return ports.ErrConnClosed
		}
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Receive returns the next frame. Frames read before the peer went away are still delivered.
func (c *Conn) Receive(ctx context.Context) (*protocol.Message, error) {
	select {
	case data, ok := <-c.frames:
		if !ok {
			return nil, ports.ErrConnClosed
		}
		return protocol.Decode(data)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close sends a close frame and releases the socket.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	if !c.isClosed() {
		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	}
	c.writeMu.Unlock()
	c.shutdown()
	return nil
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
