// Package middleware wraps a SessionStore with behavior applied on the way in
// and out, such as encryption at rest and redaction of sensitive values.
package middleware

import "github.com/trysourcetool/sourcetool/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies mws to store so that the first one sees calls first.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
