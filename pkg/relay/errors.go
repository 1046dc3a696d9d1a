package relay

import "errors"

var (
	// ErrHandshake is returned when a connection does not open with the expected message.
	ErrHandshake = errors.New("handshake failed")

	// ErrHostGone is returned when the Host owning a session is no longer connected.
	ErrHostGone = errors.New("host disconnected")

	// ErrUnexpected is returned for message kinds a peer must not send.
	ErrUnexpected = errors.New("unexpected message")
)
