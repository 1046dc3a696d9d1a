package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionClosed is returned for any operation on a closed session.
var ErrSessionClosed = errors.New("session closed")

// ErrRerunInFlight is returned when a pass is requested while another one is running.
var ErrRerunInFlight = errors.New("rerun already in flight")

// ErrInvalidTransition is returned when the lifecycle cannot move to the requested state.
var ErrInvalidTransition = errors.New("invalid session transition")

// ErrPageNotFound is returned when a page id is not registered.
var ErrPageNotFound = errors.New("page not found")

// ErrUnauthorized is returned when a Host presents an API key that is not accepted.
var ErrUnauthorized = errors.New("unauthorized")
