package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pulseline/notifyd/internal/hub"
	"github.com/pulseline/notifyd/internal/logger"
)

// NotificationEvent is the payload delivered to realtime clients on the
// "notification" event.
type NotificationEvent struct {
	UserID    int64  `json:"user_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// eventPublisher is the slice of the realtime hub the adapter uses.
type eventPublisher interface {
	Publish(room string, event hub.Event) int
}

// InAppAdapter delivers notifications to connected realtime clients. The
// room name is the string form of the user ID; publishing to an empty room
// succeeds, offline users simply miss the event.
type InAppAdapter struct {
	hub    eventPublisher
	logger *logger.Logger
	now    func() time.Time
}

// NewInAppAdapter creates an in-app adapter. The hub is injected here; a
// nil hub (worker processes run without one) makes every Send fail with a
// not-initialized result instead of panicking mid-dispatch.
func NewInAppAdapter(h *hub.Hub, logger *logger.Logger) *InAppAdapter {
	a := &InAppAdapter{
		logger: logger.WithComponent("inapp_adapter"),
		now:    time.Now,
	}
	if h != nil {
		a.hub = h
	}
	return a
}

// Send publishes the notification event to the target user's room.
func (a *InAppAdapter) Send(ctx context.Context, target, title, content string) Result {
	if a.hub == nil {
		return Result{OK: false, Detail: (&NotInitializedError{}).Error()}
	}

	userID, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return Result{OK: false, Detail: fmt.Sprintf("invalid user id %q", target)}
	}

	delivered := a.hub.Publish(target, hub.Event{
		Event: "notification",
		Data: NotificationEvent{
			UserID:    userID,
			Title:     title,
			Content:   content,
			Timestamp: a.now().UTC().Format(time.RFC3339),
		},
	})

	a.logger.Info("in-app notification published",
		slog.String("room", target),
		slog.Int("delivered", delivered))
	return Result{OK: true, Detail: "In-app notification sent"}
}
