package hub

import (
	"log/slog"
	"sync"

	"github.com/pulseline/notifyd/internal/logger"
)

// Conn is the write side of a realtime connection. *websocket.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Event is the envelope emitted to clients.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks room membership for realtime delivery. Rooms are named by the
// string form of a user ID; membership lives only in this process and is
// rebuilt from zero on restart, so clients rejoin after every reconnect.
type Hub struct {
	// rooms maps room name -> set of connections
	rooms map[string]map[Conn]bool

	// connRooms maps connection -> set of room names (for cleanup)
	connRooms map[Conn]map[string]bool

	mu     sync.RWMutex
	logger *logger.Logger
}

// New creates an empty hub.
func New(logger *logger.Logger) *Hub {
	return &Hub{
		rooms:     make(map[string]map[Conn]bool),
		connRooms: make(map[Conn]map[string]bool),
		logger:    logger.WithComponent("hub"),
	}
}

// Join adds a connection to the named room.
func (h *Hub) Join(room string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[Conn]bool)
	}
	h.rooms[room][conn] = true

	if h.connRooms[conn] == nil {
		h.connRooms[conn] = make(map[string]bool)
	}
	h.connRooms[conn][room] = true

	h.logger.Debug("connection joined room",
		slog.String("room", room),
		slog.Int("room_connections", len(h.rooms[room])))
}

// Disconnect removes a connection from every room it belongs to.
func (h *Hub) Disconnect(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.connRooms[conn] {
		if members, ok := h.rooms[room]; ok {
			delete(members, conn)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.connRooms, conn)

	h.logger.Debug("connection disconnected")
}

// Publish fans an event out to every connection currently in the room and
// returns the number of successful writes. An empty room is a successful
// no-op. Writes that fail are skipped; those clients simply miss the event.
func (h *Hub) Publish(room string, event Event) int {
	h.mu.RLock()
	members, ok := h.rooms[room]
	if !ok || len(members) == 0 {
		h.mu.RUnlock()
		h.logger.Debug("publish to empty room", slog.String("room", room))
		return 0
	}

	// Copy under the read lock so writes happen without holding it.
	conns := make([]Conn, 0, len(members))
	for conn := range members {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if conn == nil {
			continue
		}
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Error("failed to write event",
				slog.String("room", room),
				slog.String("error", err.Error()))
			continue
		}
		delivered++
	}

	h.logger.Info("event published",
		slog.String("room", room),
		slog.String("event", event.Event),
		slog.Int("delivered", delivered))
	return delivered
}

// RoomSize returns the number of connections currently in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ConnectionCount returns the number of tracked connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connRooms)
}
