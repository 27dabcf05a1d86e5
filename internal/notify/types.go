package notify

import (
	"context"
	"strconv"
)

// JobType identifies the delivery channel for a job.
type JobType string

const (
	TypeEmail JobType = "email"
	TypeSMS   JobType = "sms"
	TypeInApp JobType = "in-app"
)

// Valid reports whether t is one of the three delivery channels.
func (t JobType) Valid() bool {
	switch t {
	case TypeEmail, TypeSMS, TypeInApp:
		return true
	}
	return false
}

// DeliveryJob is the queue message describing one pending delivery. It is
// created by the triggering side, serialized as flat JSON, and immutable
// once enqueued. Only the field matching Type is meaningful as a target.
type DeliveryJob struct {
	Type           JobType `json:"type"`
	Email          string  `json:"email,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	UserID         int64   `json:"user_id,omitempty"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	NotificationID int64   `json:"notification_id"`
}

// Target returns the channel-specific delivery target.
func (j DeliveryJob) Target() string {
	switch j.Type {
	case TypeEmail:
		return j.Email
	case TypeSMS:
		return j.Phone
	case TypeInApp:
		return strconv.FormatInt(j.UserID, 10)
	}
	return ""
}

// Result is the outcome of one delivery attempt. It is surfaced through
// logs and metrics only, never persisted.
type Result struct {
	OK     bool
	Detail string
}

// Adapter translates a generic delivery request into a call against one
// specific transport. Implementations never propagate transport errors;
// every failure comes back as Result{OK: false}.
type Adapter interface {
	Send(ctx context.Context, target, title, content string) Result
}
