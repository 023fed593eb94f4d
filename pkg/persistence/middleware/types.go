// Package middleware wraps a ports.RunStore with cross-cutting behavior such
// as redaction of sensitive text and encryption at rest.
package middleware

import "github.com/aretw0/cartography/pkg/ports"

// Middleware allows wrapping a RunStore to add behavior.
type Middleware func(ports.RunStore) ports.RunStore

// Chain applies mws so that the first one is the outermost.
func Chain(store ports.RunStore, mws ...Middleware) ports.RunStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
