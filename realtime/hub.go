package realtime

import (
	"sync"
)

// Hub tracks live connections and their room memberships. All state is
// process-local and rebuilt from zero on restart; reconnecting clients must
// re-join their rooms. Fan-out across multiple instances would need an
// external broker, which is out of scope.
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]*Connection            // connection id -> connection
	rooms     map[string]map[string]*Connection // room -> connection id -> connection
	connRooms map[string]map[string]struct{}    // connection id -> joined rooms
}

// NewHub constructs an initialized Hub.
func NewHub() *Hub {
	return &Hub{
		conns:     make(map[string]*Connection),
		rooms:     make(map[string]map[string]*Connection),
		connRooms: make(map[string]map[string]struct{}),
	}
}

// Register tracks a connection. The caller owns the connection's write loop.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	h.conns[conn.ID] = conn
	h.connRooms[conn.ID] = make(map[string]struct{})
	h.mu.Unlock()
}

// Unregister removes the connection from every room it joined and from the
// hub. Idempotent; the second call for the same connection is a no-op.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn.ID]; !ok {
		return
	}
	for room := range h.connRooms[conn.ID] {
		if members := h.rooms[room]; members != nil {
			delete(members, conn.ID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.connRooms, conn.ID)
	delete(h.conns, conn.ID)
}

// Join subscribes the connection to a room. Idempotent: joining a room the
// connection already belongs to is a no-op.
func (h *Hub) Join(room string, conn *Connection) {
	if room == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn.ID]; !ok {
		return
	}

	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*Connection)
		h.rooms[room] = members
	}
	members[conn.ID] = conn
	h.connRooms[conn.ID][room] = struct{}{}
}

// Broadcast delivers payload to every connection currently subscribed to the
// room and reports how many were targeted. The member set is snapshotted
// under the read lock so concurrent joins never expose a half-mutated set.
func (h *Hub) Broadcast(room string, payload []byte) int {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.rooms[room]))
	for _, conn := range h.rooms[room] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		_ = conn.Send(payload)
	}
	return len(targets)
}

// BroadcastGlobal delivers payload to every registered connection regardless
// of room membership.
func (h *Hub) BroadcastGlobal(payload []byte) int {
	return h.broadcastExcept("", payload)
}

// BroadcastExcept delivers payload to every registered connection except the
// one identified by excludeID.
func (h *Hub) BroadcastExcept(excludeID string, payload []byte) int {
	return h.broadcastExcept(excludeID, payload)
}

func (h *Hub) broadcastExcept(excludeID string, payload []byte) int {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.conns))
	for id, conn := range h.conns {
		if id == excludeID {
			continue
		}
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		_ = conn.Send(payload)
	}
	return len(targets)
}

// RoomSize reports the current subscriber count for a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
