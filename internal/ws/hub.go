package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/metrics"
)

// room holds the live members of one chat room. Its mutex is held for the
// whole of a fan-out so every member sees the room's messages in one order.
type room struct {
	mu    sync.Mutex
	conns map[*Connection]struct{}
}

// Hub indexes live connections by room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
	log   logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		rooms: make(map[string]*room),
		log:   log,
	}
}

// Join adds c to the room it was accepted for.
func (h *Hub) Join(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.RoomID]
	if !ok {
		r = &room{conns: make(map[*Connection]struct{})}
		h.rooms[c.RoomID] = r
	}
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
	h.log.WithFields(logrus.Fields{"room_id": c.RoomID, "conn_id": c.ID}).Debug("joined room")
}

// Leave removes c from its room and forgets the room once it is empty.
func (h *Hub) Leave(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.RoomID]
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.conns, c)
	empty := len(r.conns) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, c.RoomID)
	}
	h.log.WithFields(logrus.Fields{"room_id": c.RoomID, "conn_id": c.ID}).Debug("left room")
}

// Broadcast queues msg for every member of the room except from, which may
// be nil. A member whose queue is full is dropped and closed instead of
// stalling the room. It returns the number of members the message reached.
func (h *Hub) Broadcast(roomID string, from *Connection, msg []byte) int {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	sent := 0
	for c := range r.conns {
		if c == from {
			continue
		}
		select {
		case c.send <- msg:
			sent++
		default:
			delete(r.conns, c)
			c.Close(websocket.CloseTryAgainLater, "slow consumer")
			metrics.WSRejected.WithLabelValues("slow_consumer").Inc()
			h.log.WithFields(logrus.Fields{"room_id": roomID, "conn_id": c.ID}).Warn("send buffer full, dropping connection")
		}
	}
	return sent
}

// Members reports how many connections are joined to the room.
func (h *Hub) Members(roomID string) int {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes every live connection with code and reason.
func (h *Hub) CloseAll(code int, reason string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.rooms {
		r.mu.Lock()
		for c := range r.conns {
			c.Close(code, reason)
		}
		r.mu.Unlock()
	}
}
