package relay

import "github.com/trysourcetool/sourcetool/pkg/protocol"

// Direction is the leg a routed message travelled.
type Direction string

const (
	HostToClient Direction = "host_to_client"
	ClientToHost Direction = "client_to_host"
)

// Hooks observe relay activity. Any field may be nil.
type Hooks struct {
	OnHostConnected    func(HostInfo)
	OnHostDisconnected func(HostInfo)
	OnSessionOpened    func(SessionInfo)
	OnSessionClosed    func(SessionInfo)
	OnClientAttached   func(SessionInfo)
	OnClientDetached   func(SessionInfo)
	OnMessage          func(Direction, protocol.Kind)
	OnRejected         func(reason string)
}

// Merge returns hooks that call h first and then other.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnHostConnected:    chain(h.OnHostConnected, other.OnHostConnected),
		OnHostDisconnected: chain(h.OnHostDisconnected, other.OnHostDisconnected),
		OnSessionOpened:    chain(h.OnSessionOpened, other.OnSessionOpened),
		OnSessionClosed:    chain(h.OnSessionClosed, other.OnSessionClosed),
		OnClientAttached:   chain(h.OnClientAttached, other.OnClientAttached),
		OnClientDetached:   chain(h.OnClientDetached, other.OnClientDetached),
		OnMessage:          chain2(h.OnMessage, other.OnMessage),
		OnRejected:         chain(h.OnRejected, other.OnRejected),
	}
}

func chain[T any](a, b func(T)) func(T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(v T) {
		a(v)
		b(v)
	}
}

func chain2[A, B any](a, b func(A, B)) func(A, B) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(x A, y B) {
		a(x, y)
		b(x, y)
	}
}

func fire[T any](fn func(T), v T) {
	if fn != nil {
		fn(v)
	}
}

func fire2[A, B any](fn func(A, B), a A, b B) {
	if fn != nil {
		fn(a, b)
	}
}
