// Package middleware decorates a ports.WorkflowStore with extra behavior at the storage edge.
package middleware

import "github.com/aretw0/waypoint/pkg/ports"

// Middleware allows wrapping a WorkflowStore to add behavior.
type Middleware func(ports.WorkflowStore) ports.WorkflowStore

// Wrap applies mws to store. The first middleware is the outermost.
func Wrap(store ports.WorkflowStore, mws ...Middleware) ports.WorkflowStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
