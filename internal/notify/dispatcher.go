package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulseline/notifyd/internal/logger"
)

// Dispatcher routes a delivery job to the adapter matching its channel
// type and bounds each send with a timeout so a hung transport call cannot
// stall the consumer loop indefinitely.
type Dispatcher struct {
	adapters map[JobType]Adapter
	timeout  time.Duration
	logger   *logger.Logger
}

// NewDispatcher wires one adapter per channel. Routing is total over the
// three job types; nothing else reaches an adapter.
func NewDispatcher(email, sms, inApp Adapter, timeout time.Duration, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		adapters: map[JobType]Adapter{
			TypeEmail: email,
			TypeSMS:   sms,
			TypeInApp: inApp,
		},
		timeout: timeout,
		logger:  logger.WithComponent("dispatcher"),
	}
}

// Dispatch sends the job through its channel adapter and returns the
// outcome. Every failure mode, including an adapter panic or a transport
// that never returns, comes back as a Result rather than crashing or
// hanging the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, job DeliveryJob) Result {
	adapter, ok := d.adapters[job.Type]
	if !ok {
		return Result{OK: false, Detail: fmt.Sprintf("unknown notification type %q", job.Type)}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resCh := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- Result{OK: false, Detail: fmt.Sprintf("%s adapter panicked: %v", job.Type, r)}
			}
		}()
		resCh <- adapter.Send(ctx, job.Target(), job.Title, job.Content)
	}()

	select {
	case res := <-resCh:
		return res
	case <-ctx.Done():
		d.logger.Warn("delivery timed out",
			slog.String("type", string(job.Type)),
			slog.Duration("timeout", d.timeout))
		return Result{OK: false, Detail: (&TransportError{
			Channel: string(job.Type),
			Err:     fmt.Errorf("timed out after %s", d.timeout),
		}).Error()}
	}
}
