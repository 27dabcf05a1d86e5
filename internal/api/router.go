package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulseline/notifyd/internal/hub"
	"github.com/pulseline/notifyd/internal/logger"
)

// NewRouter assembles the gin engine: CRUD endpoints, the websocket
// endpoint, health, and metrics.
func NewRouter(h *Handler, ws *hub.Handler, log *logger.Logger, corsAllowedOrigins string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.RequestLoggingMiddleware(log))

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", corsAllowedOrigins)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/users", h.CreateUser)
	router.GET("/users", h.ListUsers)
	router.GET("/users/:id/notifications", h.ListUserNotifications)
	router.POST("/notifications", h.CreateNotification)
	router.POST("/send-direct-notification", h.SendDirectNotification)
	router.DELETE("/notifications/:id", h.DeleteNotification)

	router.GET("/ws", ws.Serve)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notifyd"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
