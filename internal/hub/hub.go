package hub

import (
	"sync"

	"go.uber.org/zap"
)

// Hub tracks open websocket sessions per room and fans events out to them.
// It is the process-local view of who is online right now.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Conn // roomID -> connID -> conn
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Conn),
		logger: logger,
	}
}

// Register adds a session to a room.
func (h *Hub) Register(roomID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[string]*Conn)
		h.rooms[roomID] = room
	}
	room[conn.ID()] = conn

	h.logger.Info("Session joined room",
		zap.String("room_id", roomID),
		zap.String("username", conn.Username()),
		zap.String("conn_id", conn.ID()))
}

// Unregister removes a session from a room and marks it closed.
func (h *Hub) Unregister(roomID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[roomID]; ok {
		delete(room, conn.ID())
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	conn.markClosed()

	h.logger.Info("Session left room",
		zap.String("room_id", roomID),
		zap.String("username", conn.Username()),
		zap.String("conn_id", conn.ID()))
}

// Broadcast sends an event to every open session in a room. Sessions that
// fail to take the write are left for their read loops to reap.
func (h *Hub) Broadcast(roomID, event string, payload interface{}) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if !c.Alive() {
			continue
		}
		if err := c.Emit(event, payload); err != nil {
			h.logger.Warn("Broadcast write failed",
				zap.String("room_id", roomID),
				zap.String("conn_id", c.ID()),
				zap.Error(err))
		}
	}
}

// ActiveUsernames reports the distinct usernames with an open session in the
// room.
func (h *Hub) ActiveUsernames(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	var names []string
	for _, c := range h.rooms[roomID] {
		if !c.Alive() {
			continue
		}
		if _, ok := seen[c.Username()]; ok {
			continue
		}
		seen[c.Username()] = struct{}{}
		names = append(names, c.Username())
	}
	return names
}
