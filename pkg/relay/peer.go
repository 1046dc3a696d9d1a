package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
)

// peer owns the write side of one connection.
// Only its writer goroutine calls conn.Send.
type peer struct {
	id           string
	conn         ports.Conn
	outbox       chan *protocol.Message
	writeTimeout time.Duration
	logger       *slog.Logger

	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
	doneOnce sync.Once
}

func newPeer(id string, conn ports.Conn, buffer int, writeTimeout time.Duration, logger *slog.Logger) *peer {
	return &peer{
		id:           id,
		conn:         conn,
		outbox:       make(chan *protocol.Message, buffer),
		writeTimeout: writeTimeout,
		logger:       logger,
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// run writes queued messages in order until the peer is closed.
func (p *peer) run(ctx context.Context) {
	defer p.abort()
	for {
		select {
		case msg := <-p.outbox:
			if !p.write(ctx, msg) {
				return
			}
		case <-p.quit:
			for {
				select {
				case msg := <-p.outbox:
					if !p.write(ctx, msg) {
						return
					}
				default:
					return
				}
			}
		case <-p.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *peer) write(ctx context.Context, msg *protocol.Message) bool {
	wctx := ctx
	if p.writeTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()
	}
	if err := p.conn.Send(wctx, msg); err != nil {
		p.logger.Warn("Failed to write message", "peer", p.id, "kind", msg.Kind(), "err", err)
		return false
	}
	return true
}

// send queues msg, blocking while the FIFO is full.
func (p *peer) send(ctx context.Context, msg *protocol.Message) error {
	select {
	case <-p.done:
		return ports.ErrConnClosed
	case <-p.quit:
		return ports.ErrConnClosed
	default:
	}
	select {
	case p.outbox <- msg:
		return nil
	case <-p.done:
		return ports.ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain stops intake and lets the writer flush what is queued before closing.
func (p *peer) drain() {
	p.quitOnce.Do(func() { close(p.quit) })
}

// abort closes the connection immediately.
func (p *peer) abort() {
	p.doneOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

// shutdown drains the peer and waits for the writer, at most timeout.
func (p *peer) shutdown(timeout time.Duration) {
	p.drain()
	select {
	case <-p.done:
	case <-time.After(timeout):
		p.abort()
	}
}
