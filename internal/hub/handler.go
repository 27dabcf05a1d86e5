package hub

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pulseline/notifyd/internal/logger"
	"github.com/pulseline/notifyd/internal/metrics"
)

const pingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Realtime clients are unauthenticated; origin checks are left to the
	// deployment's ingress.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// controlMessage is what clients send over the socket. Only "join" carries
// a payload; connect and disconnect are lifecycle events.
type controlMessage struct {
	Event string `json:"event"`
	Room  string `json:"room"`
}

// Handler exposes the websocket endpoint backed by a Hub.
type Handler struct {
	hub    *Hub
	logger *logger.Logger
}

// NewHandler creates a websocket handler.
func NewHandler(hub *Hub, logger *logger.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
	}
}

// Serve handles GET /ws. It upgrades the connection and then reads join
// directives until the client goes away; disconnect removes the connection
// from every room it joined.
func (h *Handler) Serve(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("realtime")

	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}
	// All writes (hub fan-out, pings) funnel through the serialized
	// wrapper; reads stay on the raw connection in the single read loop.
	conn := newSocketConn(raw)
	defer conn.Close()

	log.Info("client connected",
		slog.String("remote_addr", raw.RemoteAddr().String()))
	metrics.RealtimeConnections.Inc()
	defer metrics.RealtimeConnections.Dec()
	defer h.hub.Disconnect(conn)

	done := make(chan struct{})

	// Read loop: join directives plus disconnect detection.
	go func() {
		defer close(done)
		for {
			var msg controlMessage
			if err := raw.ReadJSON(&msg); err != nil {
				log.Info("client disconnected",
					slog.String("remote_addr", raw.RemoteAddr().String()))
				return
			}

			if msg.Event == "join" && msg.Room != "" {
				h.hub.Join(msg.Room, conn)
				log.Info("client joined room",
					slog.String("room", msg.Room))
			}
		}
	}()

	// Keep-alive pings until the client disconnects.
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				log.Debug("failed to send ping",
					slog.String("error", err.Error()))
				return
			}

		case <-done:
			return
		}
	}
}
