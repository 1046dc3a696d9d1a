package widget

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned when decoding a widget whose variant is not recognised.
	ErrUnknownKind = errors.New("unknown widget kind")

	// ErrKindMismatch is returned when a value is copied between different variants.
	ErrKindMismatch = errors.New("widget kind mismatch")

	// ErrInvalidValue is returned when a value does not fit the variant's value type.
	ErrInvalidValue = errors.New("invalid widget value")

	// ErrInvalidPath is returned for empty paths or paths with negative indices.
	ErrInvalidPath = errors.New("invalid widget path")
)

// ValueError describes why a value could not be applied to a widget.
type ValueError struct {
	Kind   Kind
	Value  any
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("cannot set %T on %s: %s", e.Value, e.Kind, e.Reason)
}

func (e *ValueError) Unwrap() error {
	return ErrInvalidValue
}
