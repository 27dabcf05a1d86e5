package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/pulseline/notifyd/internal/logger"
	"github.com/pulseline/notifyd/internal/metrics"
	"github.com/pulseline/notifyd/internal/notify"
)

// Publisher enqueues delivery jobs. The API layer depends on this rather
// than the concrete producer so a broker outage can be faked in tests.
type Publisher interface {
	Enqueue(ctx context.Context, job notify.DeliveryJob) error
	Close() error
}

// Producer publishes delivery jobs to the durable queue. It dials lazily
// and redials on the next Enqueue after a broker outage, so constructing
// one never fails and the API keeps serving while the broker is down.
type Producer struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp091.Connection
	ch   *amqp091.Channel

	logger *logger.Logger
}

// NewProducer creates a producer for the named queue.
func NewProducer(url, queue string, logger *logger.Logger) *Producer {
	return &Producer{
		url:    url,
		queue:  queue,
		logger: logger.WithComponent("producer"),
	}
}

// Enqueue marshals the job and publishes it persistent to the durable
// queue through the default exchange. Failure is returned to the caller,
// who treats it as degraded success rather than failing the request.
func (p *Producer) Enqueue(ctx context.Context, job notify.DeliveryJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		// Drop the channel so the next Enqueue redials.
		p.reset()
		return err
	}

	metrics.EnqueuedTotal.WithLabelValues(string(job.Type)).Inc()
	p.logger.Info("job enqueued",
		slog.String("type", string(job.Type)),
		slog.String("queue", p.queue),
		slog.Int64("notification_id", job.NotificationID))
	return nil
}

// channel returns a live channel, dialing the broker and declaring the
// durable queue if needed. Caller holds p.mu.
func (p *Producer) channel() (*amqp091.Channel, error) {
	if p.ch != nil && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	p.conn = conn
	p.ch = ch
	return ch, nil
}

// reset drops the current connection state. Caller holds p.mu.
func (p *Producer) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close shuts the broker connection down.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
