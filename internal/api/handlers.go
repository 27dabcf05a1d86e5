package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulseline/notifyd/internal/httperr"
	"github.com/pulseline/notifyd/internal/logger"
	"github.com/pulseline/notifyd/internal/metrics"
	"github.com/pulseline/notifyd/internal/notify"
	"github.com/pulseline/notifyd/internal/queue"
	"github.com/pulseline/notifyd/internal/store"
)

// Store is the persistence surface the handlers depend on. *store.Store
// satisfies it; tests substitute in-memory fakes.
type Store interface {
	CreateUser(ctx context.Context, name, email, phone string) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	GetUser(ctx context.Context, id int64) (store.User, error)
	CreateNotification(ctx context.Context, userID int64, typ, title, content string) (store.Notification, error)
	ListNotifications(ctx context.Context, userID int64, typ string, read *bool) ([]store.Notification, error)
	DeleteNotification(ctx context.Context, id int64) error
}

// Handler serves the CRUD endpoints and triggers deliveries: in-app goes
// straight to the realtime hub, email and SMS go through the queue. The
// direct-send endpoint bypasses the queue for all three channels.
type Handler struct {
	store    Store
	producer queue.Publisher
	adapters map[notify.JobType]notify.Adapter
	logger   *logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(store Store, producer queue.Publisher, email, sms, inApp notify.Adapter, logger *logger.Logger) *Handler {
	return &Handler{
		store:    store,
		producer: producer,
		adapters: map[notify.JobType]notify.Adapter{
			notify.TypeEmail: email,
			notify.TypeSMS:   sms,
			notify.TypeInApp: inApp,
		},
		logger: logger.WithComponent("api"),
	}
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Email == "" {
		httperr.BadRequest(c, "Missing required fields")
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), req.Name, req.Email, req.Phone)
	if err != nil {
		h.logger.LogError(c.Request.Context(), err, "failed to create user")
		httperr.Internal(c, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	})
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.LogError(c.Request.Context(), err, "failed to list users")
		httperr.Internal(c, "Failed to list users")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone})
	}
	c.JSON(http.StatusOK, resp)
}

type createNotificationRequest struct {
	UserID  int64  `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateNotification handles POST /notifications. The record is stored
// first; delivery is then triggered per channel. A broker outage degrades
// the response message but never fails the request.
func (h *Handler) CreateNotification(c *gin.Context) {
	ctx := c.Request.Context()

	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 || req.Type == "" || req.Title == "" || req.Content == "" {
		httperr.BadRequest(c, "Missing required fields")
		return
	}

	// The channel type is case-insensitive on the wire.
	jobType := notify.JobType(strings.ToLower(req.Type))
	if !jobType.Valid() {
		httperr.BadRequest(c, "Invalid notification type")
		return
	}

	user, err := h.store.GetUser(ctx, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		httperr.NotFound(c, "User not found")
		return
	}
	if err != nil {
		h.logger.LogError(ctx, err, "failed to load user")
		httperr.Internal(c, "Failed to load user")
		return
	}
	ctx = logger.WithUserID(ctx, strconv.FormatInt(user.ID, 10))

	record, err := h.store.CreateNotification(ctx, user.ID, string(jobType), req.Title, req.Content)
	if err != nil {
		h.logger.LogError(ctx, err, "failed to store notification")
		httperr.Internal(c, "Failed to store notification")
		return
	}
	ctx = logger.WithNotificationID(ctx, strconv.FormatInt(record.ID, 10))

	message := "Notification enqueued for processing."

	if jobType == notify.TypeInApp {
		// In-app deliveries bypass the queue and hit the hub synchronously.
		res := h.adapters[notify.TypeInApp].Send(ctx, strconv.FormatInt(user.ID, 10), req.Title, req.Content)
		metrics.DeliveriesTotal.WithLabelValues(string(jobType), outcomeLabel(res)).Inc()
		if res.OK {
			message = "In-app notification sent directly."
		} else {
			message = fmt.Sprintf("Failed to send in-app notification: %s", res.Detail)
		}
	} else {
		job := notify.DeliveryJob{
			Type:           jobType,
			Email:          user.Email,
			Phone:          user.Phone,
			UserID:         user.ID,
			Title:          req.Title,
			Content:        req.Content,
			NotificationID: record.ID,
		}
		if err := h.producer.Enqueue(ctx, job); err != nil {
			// Degraded success: the record exists, delivery is deferred to
			// whenever the operator restores the broker.
			h.logger.LogError(ctx, err, "failed to enqueue notification",
				slog.Int64("notification_id", record.ID))
			message = "Notification saved but queueing failed. RabbitMQ may be down."
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        record.ID,
		"user_id":   record.UserID,
		"type":      record.Type,
		"title":     record.Title,
		"content":   record.Content,
		"timestamp": record.CreatedAt.Format(time.RFC3339),
		"message":   message,
		"success":   true,
	})
}

// SendDirectNotification handles POST /send-direct-notification: the
// record is stored and then delivered synchronously through the channel
// adapter, bypassing the queue entirely. Useful when the broker is down.
func (h *Handler) SendDirectNotification(c *gin.Context) {
	ctx := c.Request.Context()

	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 || req.Type == "" || req.Title == "" || req.Content == "" {
		httperr.BadRequest(c, "Missing required fields")
		return
	}

	jobType := notify.JobType(strings.ToLower(req.Type))
	if !jobType.Valid() {
		httperr.BadRequest(c, "Invalid notification type")
		return
	}

	user, err := h.store.GetUser(ctx, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		httperr.NotFound(c, "User not found")
		return
	}
	if err != nil {
		h.logger.LogError(ctx, err, "failed to load user")
		httperr.Internal(c, "Failed to load user")
		return
	}
	ctx = logger.WithUserID(ctx, strconv.FormatInt(user.ID, 10))

	record, err := h.store.CreateNotification(ctx, user.ID, string(jobType), req.Title, req.Content)
	if err != nil {
		h.logger.LogError(ctx, err, "failed to store notification")
		httperr.Internal(c, "Failed to store notification")
		return
	}
	ctx = logger.WithNotificationID(ctx, strconv.FormatInt(record.ID, 10))

	var target string
	switch jobType {
	case notify.TypeEmail:
		target = user.Email
	case notify.TypeSMS:
		target = user.Phone
	case notify.TypeInApp:
		target = strconv.FormatInt(user.ID, 10)
	}

	res := h.adapters[jobType].Send(ctx, target, req.Title, req.Content)
	metrics.DeliveriesTotal.WithLabelValues(string(jobType), outcomeLabel(res)).Inc()
	h.logger.WithContext(ctx).Info("direct notification processed",
		slog.String("type", string(jobType)),
		slog.Bool("ok", res.OK),
		slog.String("detail", res.Detail))

	status := http.StatusCreated
	if !res.OK {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"id":        record.ID,
		"user_id":   record.UserID,
		"type":      record.Type,
		"title":     record.Title,
		"content":   record.Content,
		"timestamp": record.CreatedAt.Format(time.RFC3339),
		"success":   res.OK,
		"message":   res.Detail,
	})
}

func outcomeLabel(res notify.Result) string {
	if res.OK {
		return "success"
	}
	return "failure"
}

// ListUserNotifications handles GET /users/:id/notifications with optional
// type and read filters.
func (h *Handler) ListUserNotifications(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "Invalid user id")
		return
	}

	if _, err := h.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperr.NotFound(c, "User not found")
			return
		}
		h.logger.LogError(ctx, err, "failed to load user")
		httperr.Internal(c, "Failed to load user")
		return
	}

	var read *bool
	if raw, ok := c.GetQuery("read"); ok {
		val := raw == "true"
		read = &val
	}

	notifications, err := h.store.ListNotifications(ctx, userID, c.Query("type"), read)
	if err != nil {
		h.logger.LogError(ctx, err, "failed to list notifications")
		httperr.Internal(c, "Failed to list notifications")
		return
	}

	resp := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, gin.H{
			"id":        n.ID,
			"type":      n.Type,
			"title":     n.Title,
			"content":   n.Content,
			"timestamp": n.CreatedAt.Format(time.RFC3339),
			"read":      n.Read,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteNotification handles DELETE /notifications/:id.
func (h *Handler) DeleteNotification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "Invalid notification id")
		return
	}

	if err := h.store.DeleteNotification(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperr.NotFound(c, "Notification not found")
			return
		}
		h.logger.LogError(c.Request.Context(), err, "failed to delete notification")
		httperr.Internal(c, "Failed to delete notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}
