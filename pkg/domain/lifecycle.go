package domain

import "fmt"

// SessionStatus is the state of a session's script execution.
type SessionStatus string

const (
	StatusUninitialized       SessionStatus = "uninitialized"
	StatusAwaitingFirstRender SessionStatus = "awaiting_first_render"
	StatusIdle                SessionStatus = "idle"
	StatusRunning             SessionStatus = "running"
	StatusSucceeded           SessionStatus = "succeeded"
	StatusFailed              SessionStatus = "failed"
	StatusClosed              SessionStatus = "closed"
)

// InFlight reports whether a pass is executing in this state.
func (s SessionStatus) InFlight() bool {
	return s == StatusAwaitingFirstRender || s == StatusRunning
}

// Settled reports whether the session can start a new pass.
// Succeeded and Failed behave like Idle.
func (s SessionStatus) Settled() bool {
	return s == StatusIdle || s == StatusSucceeded || s == StatusFailed
}

// Lifecycle sequences the passes of one session. At most one pass is in flight.
// It is not safe for concurrent use; callers hold the session lock.
type Lifecycle struct {
	status SessionStatus
}

// NewLifecycle returns an uninitialized lifecycle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{status: StatusUninitialized}
}

// Status returns the current state.
func (l *Lifecycle) Status() SessionStatus {
	return l.status
}

// CanRerun reports whether BeginRerun would succeed.
func (l *Lifecycle) CanRerun() bool {
	return l.status.Settled()
}

// Initialize starts the first pass.
func (l *Lifecycle) Initialize() error {
	switch l.status {
	case StatusUninitialized:
		l.status = StatusAwaitingFirstRender
		return nil
	case StatusClosed:
		return ErrSessionClosed
	}
	return l.invalid(StatusAwaitingFirstRender)
}

// BeginRerun starts a subsequent pass.
func (l *Lifecycle) BeginRerun() error {
	switch {
	case l.status == StatusClosed:
		return ErrSessionClosed
	case l.status.InFlight():
		return ErrRerunInFlight
	case l.status.Settled():
		l.status = StatusRunning
		return nil
	}
	return l.invalid(StatusRunning)
}

// Finish ends the pass in flight. A successful first pass lands in Idle.
func (l *Lifecycle) Finish(success bool) error {
	if l.status == StatusClosed {
		return ErrSessionClosed
	}
	if !l.status.InFlight() {
		return l.invalid(StatusSucceeded)
	}
	switch {
	case !success:
		l.status = StatusFailed
	case l.status == StatusAwaitingFirstRender:
		l.status = StatusIdle
	default:
		l.status = StatusSucceeded
	}
	return nil
}

// Abort undoes the transition that started the pass in flight, for a pass
// whose request never left the process. prev is the state before Initialize
// or BeginRerun.
func (l *Lifecycle) Abort(prev SessionStatus) error {
	switch {
	case l.status == StatusClosed:
		return ErrSessionClosed
	case l.status == StatusAwaitingFirstRender && prev == StatusUninitialized,
		l.status == StatusRunning && prev.Settled():
		l.status = prev
		return nil
	}
	return l.invalid(prev)
}

// Close moves to the terminal state from anywhere.
func (l *Lifecycle) Close() error {
	if l.status == StatusClosed {
		return ErrSessionClosed
	}
	l.status = StatusClosed
	return nil
}

func (l *Lifecycle) invalid(to SessionStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.status, to)
}
