package registry

import "sync"

// Location names the room a connection is playing in and as whom.
type Location struct {
	RoomID string
	Email  string
}

// Presence is the reverse index connection ID -> (room, player identity).
// It makes disconnect handling O(1) instead of scanning every live room.
// Bindings are updated by the coordinator alongside every join and leave.
type Presence struct {
	mu     sync.RWMutex
	byConn map[string]Location
}

func NewPresence() *Presence {
	return &Presence{byConn: make(map[string]Location)}
}

func (p *Presence) Bind(connID, roomID, email string) {
	p.mu.Lock()
	p.byConn[connID] = Location{RoomID: roomID, Email: email}
	p.mu.Unlock()
}

func (p *Presence) Unbind(connID string) {
	p.mu.Lock()
	delete(p.byConn, connID)
	p.mu.Unlock()
}

func (p *Presence) Lookup(connID string) (Location, bool) {
	p.mu.RLock()
	loc, ok := p.byConn[connID]
	p.mu.RUnlock()
	return loc, ok
}
