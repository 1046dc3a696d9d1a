package client

import (
	"errors"

	"github.com/trysourcetool/sourcetool/pkg/domain"
)

var (
	// ErrUnknownWidget is returned for ids that are not in the displayed tree.
	ErrUnknownWidget = errors.New("unknown widget")

	// ErrNotInteractive is returned when an operation does not apply to the widget kind.
	ErrNotInteractive = errors.New("operation not supported by widget")

	// ErrDisabled is returned when interacting with a disabled widget.
	ErrDisabled = errors.New("widget is disabled")

	// ErrNotInitialized is returned when committing before Initialize.
	ErrNotInitialized = errors.New("client not initialized")

	// ErrUnexpectedMessage is returned by Handle for kinds a Client never receives.
	ErrUnexpectedMessage = errors.New("unexpected message")

	// ErrSessionClosed is returned after Close.
	ErrSessionClosed = domain.ErrSessionClosed
)
