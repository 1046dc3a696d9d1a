package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message is one envelope on the wire.
type Message struct {
	ID      string
	Payload Payload
}

// New wraps p in an envelope with a fresh id.
func New(p Payload) *Message {
	return &Message{ID: NewID(), Payload: p}
}

// Kind returns the payload kind, or "" for an empty envelope.
func (m *Message) Kind() Kind {
	if m == nil || m.Payload == nil {
		return ""
	}
	return m.Payload.Kind()
}

// Encode serialises m as a oneof JSON object.
func Encode(m *Message) ([]byte, error) {
	if m == nil || m.Payload == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", m.Payload.Kind(), err)
	}
	return json.Marshal(map[string]json.RawMessage{
		"id":                     mustQuote(m.ID),
		string(m.Payload.Kind()): payload,
	})
}

// Decode parses one envelope. Errors are always *DecodeError.
func Decode(data []byte) (*Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	var id string
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("%w: id: %v", ErrMalformed, err)}
		}
		delete(fields, "id")
	}
	if id == "" {
		return nil, &DecodeError{Err: fmt.Errorf("%w: missing id", ErrMalformed)}
	}

	switch len(fields) {
	case 0:
		return nil, &DecodeError{ID: id, Err: fmt.Errorf("%w: no payload", ErrMalformed)}
	case 1:
	default:
		return nil, &DecodeError{ID: id, Err: fmt.Errorf("%w: %d payload kinds", ErrMalformed, len(fields))}
	}

	for key, raw := range fields {
		kind := Kind(key)
		p := newPayload(kind)
		if p == nil {
			return nil, &DecodeError{ID: id, Kind: kind, Err: fmt.Errorf("%w: %q", ErrUnknownKind, key)}
		}
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, &DecodeError{ID: id, Kind: kind, Err: fmt.Errorf("%w: %s: %v", ErrMalformed, kind, err)}
		}
		return &Message{ID: id, Payload: p}, nil
	}
	panic("unreachable")
}

// MarshalJSON lets messages be embedded in other JSON documents.
func (m Message) MarshalJSON() ([]byte, error) {
	return Encode(&m)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// IsDecodeError reports whether err came from Decode and returns it.
func IsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	ok := errors.As(err, &de)
	return de, ok
}

func mustQuote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
