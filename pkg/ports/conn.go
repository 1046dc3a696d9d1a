package ports

import (
	"context"
	"errors"

	"github.com/trysourcetool/sourcetool/pkg/protocol"
)

// ErrConnClosed is returned by Send and Receive once a connection is closed.
var ErrConnClosed = errors.New("connection closed")

// Conn carries protocol messages between two peers in order.
type Conn interface {
	// Send writes one message. Implementations must be safe for concurrent use.
	Send(ctx context.Context, msg *protocol.Message) error

	// Receive blocks until the next message arrives.
	// A frame that cannot be decoded yields a *protocol.DecodeError and the
	// connection stays usable. A closed peer yields ErrConnClosed.
	Receive(ctx context.Context) (*protocol.Message, error)

	// Close releases the connection. It unblocks pending Receive calls.
	Close() error
}
