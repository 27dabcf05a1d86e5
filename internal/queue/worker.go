package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"

	"github.com/pulseline/notifyd/internal/logger"
	"github.com/pulseline/notifyd/internal/metrics"
	"github.com/pulseline/notifyd/internal/notify"
)

// AckPolicy decides what happens to a delivery once its outcome is known.
// It is the seam for swapping in retry-with-dead-letter later without
// touching dispatch logic.
type AckPolicy interface {
	Resolve(d *amqp091.Delivery, res notify.Result) error
}

// AckAlways acknowledges every delivery regardless of outcome. Failed
// sends are visible in logs and metrics only; the broker never redelivers
// them. This silently drops failed deliveries — a known, deliberate
// limitation of the current pipeline.
type AckAlways struct{}

func (AckAlways) Resolve(d *amqp091.Delivery, _ notify.Result) error {
	return d.Ack(false)
}

// Worker is the queue consumer: a blocking single-threaded loop pulling
// one delivery job at a time (prefetch 1), routing it through the
// dispatcher, and resolving it via the ack policy. Horizontal scaling is
// more worker processes competing on the same queue, never concurrency
// inside one worker.
type Worker struct {
	conn       *amqp091.Connection
	queue      string
	dispatcher *notify.Dispatcher
	ack        AckPolicy
	logger     *logger.Logger
}

// NewWorker creates a worker consuming the named queue.
func NewWorker(conn *amqp091.Connection, queue string, dispatcher *notify.Dispatcher, logger *logger.Logger) *Worker {
	return &Worker{
		conn:       conn,
		queue:      queue,
		dispatcher: dispatcher,
		ack:        AckAlways{},
		logger:     logger.WithComponent("worker"),
	}
}

// Run consumes until the context is cancelled or the broker connection
// drops. No error inside a single delivery ever terminates the loop.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	// One job in flight at a time; this bounds resource use against the
	// channel back ends (one SMTP session at a time).
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	if _, err := ch.QueueDeclare(w.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	msgs, err := ch.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consume: %w", err)
	}

	w.logger.Info("waiting for delivery jobs", slog.String("queue", w.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consume channel closed")
			}
			w.process(ctx, d)
		}
	}
}

// process handles one delivery: decode, dispatch, log, resolve. Malformed
// bodies are logged and acknowledged so they cannot loop as poison
// messages.
func (w *Worker) process(ctx context.Context, d amqp091.Delivery) {
	job, err := decodeJob(d.Body)
	if err != nil {
		w.logger.Error("discarding malformed job",
			slog.String("error", err.Error()))
		metrics.DeliveriesTotal.WithLabelValues("unknown", "malformed").Inc()
		if ackErr := w.ack.Resolve(&d, notify.Result{OK: false, Detail: err.Error()}); ackErr != nil {
			w.logger.Error("failed to ack malformed job",
				slog.String("error", ackErr.Error()))
		}
		return
	}

	res := w.dispatcher.Dispatch(ctx, job)

	outcome := "failure"
	if res.OK {
		outcome = "success"
	}
	metrics.DeliveriesTotal.WithLabelValues(string(job.Type), outcome).Inc()
	w.logger.Info("notification processed",
		slog.String("type", string(job.Type)),
		slog.Int64("notification_id", job.NotificationID),
		slog.Bool("ok", res.OK),
		slog.String("detail", res.Detail))

	if err := w.ack.Resolve(&d, res); err != nil {
		w.logger.Error("failed to resolve delivery",
			slog.String("type", string(job.Type)),
			slog.String("error", err.Error()))
	}
}

// decodeJob parses and validates a queue message body.
func decodeJob(body []byte) (notify.DeliveryJob, error) {
	var job notify.DeliveryJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, &notify.DecodeError{Err: err}
	}
	if !job.Type.Valid() {
		return job, &notify.DecodeError{Err: fmt.Errorf("missing or unknown type %q", job.Type)}
	}
	return job, nil
}
