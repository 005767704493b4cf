package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pinchat/pinchat/internal/model"
)

// Hub tracks live websocket clients and their transport-level room
// subscriptions, and delivers outbound events to them. It implements the
// router's Transport interface.
type Hub struct {
	mu      sync.RWMutex
	clients map[model.ConnID]*Client
	rooms   map[model.RoomID]map[model.ConnID]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.ConnID]*Client),
		rooms:   make(map[model.RoomID]map[model.ConnID]struct{}),
		logger:  logger.With(slog.String("component", "ws-hub")),
	}
}

// Add registers a connected client
func (h *Hub) Add(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected",
		slog.String("conn", string(client.id)),
		slog.Int("total_clients", total))
}

// Remove drops a client and every room subscription it still holds, and
// releases its write pump. Removing an unknown client is a no-op.
func (h *Hub) Remove(conn model.ConnID) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		client.close()
	}
	for room, members := range h.rooms {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("client disconnected",
			slog.String("conn", string(conn)),
			slog.Int("total_clients", total))
	}
}

// Subscribe adds the connection to the room's transport group
func (h *Hub) Subscribe(conn model.ConnID, room model.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[model.ConnID]struct{})
	}
	h.rooms[room][conn] = struct{}{}
}

// Unsubscribe removes the connection from the room's transport group
func (h *Hub) Unsubscribe(conn model.ConnID, room model.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Unicast delivers an event to a single connection
func (h *Hub) Unicast(conn model.ConnID, ev model.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	client := h.clients[conn]
	h.mu.RUnlock()

	if client != nil {
		client.enqueue(data)
	}
}

// Broadcast delivers an event to the room's members as of call time,
// skipping except when non-empty. The member set is snapshotted under the
// lock and delivery happens outside it.
func (h *Hub) Broadcast(room model.RoomID, ev model.Event, except model.ConnID) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*Client, 0, len(members))
	for conn := range members {
		if conn == except {
			continue
		}
		if client, ok := h.clients[conn]; ok {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(data)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of connections subscribed to room
func (h *Hub) RoomSize(room model.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
