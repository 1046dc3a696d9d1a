package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned for input that is not a well-formed envelope.
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownKind is returned for envelopes whose payload kind is not recognised.
	ErrUnknownKind = errors.New("unknown message kind")

	// ErrInvalidMessage is returned by Validate when a payload breaks its invariants.
	ErrInvalidMessage = errors.New("invalid message")
)

// DecodeError reports why a frame could not be decoded.
// ID is set whenever the envelope id could be recovered.
type DecodeError struct {
	ID   string
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("decode message: %v", e.Err)
	}
	return fmt.Sprintf("decode message %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
