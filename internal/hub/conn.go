package hub

import (
	"sync"

	"github.com/gorilla/websocket"
)

// socketConn serializes writes to one websocket connection. gorilla
// permits a single concurrent writer, but hub fan-outs and the handler's
// keep-alive pings run on different goroutines, so every write goes
// through this mutex.
type socketConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func newSocketConn(c *websocket.Conn) *socketConn {
	return &socketConn{c: c}
}

func (s *socketConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.WriteJSON(v)
}

// Ping sends a websocket ping control frame.
func (s *socketConn) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.WriteMessage(websocket.PingMessage, nil)
}

func (s *socketConn) Close() error {
	return s.c.Close()
}
