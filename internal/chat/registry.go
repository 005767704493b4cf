package chat

import (
	"sync"

	"github.com/pinchat/pinchat/internal/model"
)

// Registry is the bidirectional mapping between live connections and the PIN
// they are authenticated as. A PIN may have any number of simultaneous
// connections (multi-device); a connection is bound to at most one PIN.
//
// Invariant: the forward and reverse maps are exact mutual inverses, and no
// PIN entry is ever left with an empty connection set.
type Registry struct {
	mu     sync.RWMutex
	byPin  map[model.PIN]map[model.ConnID]struct{}
	byConn map[model.ConnID]model.PIN
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		byPin:  make(map[model.PIN]map[model.ConnID]struct{}),
		byConn: make(map[model.ConnID]model.PIN),
	}
}

// Bind records that conn is now authenticated as pin. Binding the same
// connection twice is a no-op.
func (r *Registry) Bind(pin model.PIN, conn model.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPin[pin]; !ok {
		r.byPin[pin] = make(map[model.ConnID]struct{})
	}
	r.byPin[pin][conn] = struct{}{}
	r.byConn[conn] = pin
}

// Unbind atomically removes conn from both maps and returns the PIN it was
// bound to. The second return is false if the connection was never bound,
// e.g. a disconnect before authentication.
func (r *Registry) Unbind(conn model.ConnID) (model.PIN, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pin, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)

	if conns, ok := r.byPin[pin]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.byPin, pin)
		}
	}
	return pin, true
}

// LookupPin returns the PIN a connection is bound to, if any
func (r *Registry) LookupPin(conn model.ConnID) (model.PIN, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pin, ok := r.byConn[conn]
	return pin, ok
}

// ActiveConnections returns a snapshot of the connections currently bound to
// pin. The result is a copy and safe to use without holding the lock.
func (r *Registry) ActiveConnections(pin model.PIN) []model.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byPin[pin]
	if len(conns) == 0 {
		return nil
	}
	out := make([]model.ConnID, 0, len(conns))
	for c := range conns {
		out = append(out, c)
	}
	return out
}
