package memory

import (
	"context"
	"sync"

	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
)

// DefaultPipeBuffer is the number of frames a pipe direction holds before Send blocks.
const DefaultPipeBuffer = 64

// PipeConn is one end of an in-process connection.
// Frames go through the protocol codec, so both ends see exactly what a network peer would.
type PipeConn struct {
	in  <-chan []byte
	out chan<- []byte

	closed    chan struct{}
	closeOnce *sync.Once
}

var _ ports.Conn = (*PipeConn)(nil)

// NewPipe returns two connected ends. Closing either end closes both.
func NewPipe(buffer int) (*PipeConn, *PipeConn) {
	if buffer <= 0 {
		buffer = DefaultPipeBuffer
	}
	ab := make(chan []byte, buffer)
	ba := make(chan []byte, buffer)
	closed := make(chan struct{})
	once := &sync.Once{}
	a := &PipeConn{in: ba, out: ab, closed: closed, closeOnce: once}
	b := &PipeConn{in: ab, out: ba, closed: closed, closeOnce: once}
	return a, b
}

// Send encodes msg and blocks until the peer has room for it.
func (p *PipeConn) Send(ctx context.Context, msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return p.SendRaw(ctx, data)
}

// SendRaw queues an already encoded frame. Tests use it to inject malformed input.
func (p *PipeConn) SendRaw(ctx context.Context, data []byte) error {
	select {
	case <-p.closed:
		return ports.ErrConnClosed
	default:
	}
	select {
	case p.out <- data:
		return nil
	case <-p.closed:
		return ports.ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the next frame. Frames queued before Close are still delivered.
func (p *PipeConn) Receive(ctx context.Context) (*protocol.Message, error) {
	select {
	case data := <-p.in:
		return protocol.Decode(data)
	default:
	}
	select {
	case data := <-p.in:
		return protocol.Decode(data)
	case <-p.closed:
		select {
		case data := <-p.in:
			return protocol.Decode(data)
		default:
			return nil, ports.ErrConnClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes both ends.
func (p *PipeConn) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
