// Package registry tracks live websocket connections and which room each
// connection is currently playing in. Nothing here is persisted.
package registry

import "sync"

// Conn is the minimal send-capable handle the rest of the system sees.
// *ws.ClientConn satisfies it; tests use fakes.
type Conn interface {
	WriteJSON(v any) error
}

// Registry maps connection IDs to live handles. A lookup miss means the
// connection is gone and the caller must treat the reference as stale.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

func (r *Registry) Add(id string, c Conn) {
	r.mu.Lock()
	r.conns[id] = c
	r.mu.Unlock()
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (Conn, bool) {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns the current handles keyed by connection ID so callers can
// do the send I/O without holding the registry lock.
func (r *Registry) Snapshot() map[string]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Conn, len(r.conns))
	for id, c := range r.conns {
		out[id] = c
	}
	return out
}
