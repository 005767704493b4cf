package chat

import (
	"sync"

	"github.com/pinchat/pinchat/internal/model"
)

// Membership tracks, per connection, the set of rooms it has joined. A
// connection's set is only touched by operations addressed to that same
// connection, or by disconnect cleanup.
type Membership struct {
	mu    sync.RWMutex
	rooms map[model.ConnID]map[model.RoomID]struct{}
}

// NewMembership creates an empty membership tracker
func NewMembership() *Membership {
	return &Membership{
		rooms: make(map[model.ConnID]map[model.RoomID]struct{}),
	}
}

// Join adds room to the connection's membership set. The caller is
// responsible for also subscribing the connection to the transport-level
// group of the same name.
func (m *Membership) Join(conn model.ConnID, room model.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[conn]; !ok {
		m.rooms[conn] = make(map[model.RoomID]struct{})
	}
	m.rooms[conn][room] = struct{}{}
}

// IsMember reports whether the connection has joined room
func (m *Membership) IsMember(conn model.ConnID, room model.RoomID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[conn][room]
	return ok
}

// TakeAllRooms atomically removes and returns the connection's full
// membership set. Used only at disconnect; a second call for the same
// connection returns nil.
func (m *Membership) TakeAllRooms(conn model.ConnID) []model.RoomID {
	m.mu.Lock()
	defer m.mu.Unlock()

	rooms, ok := m.rooms[conn]
	if !ok {
		return nil
	}
	delete(m.rooms, conn)

	out := make([]model.RoomID, 0, len(rooms))
	for r := range rooms {
		out = append(out, r)
	}
	return out
}
