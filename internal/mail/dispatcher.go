package mail

import (
	"context"
	"fmt"

	"github.com/inkcircle/inkcircle-api/internal/bus"
)

// Dispatcher hands a message off for delivery. The implementation is chosen
// once at startup: QueueDispatcher when a NATS endpoint is configured,
// SMTPSender otherwise. The synchronous path blocks the caller for the full
// SMTP round trip and ties delivery failures to the request that triggered
// the mail, so it is a degraded mode, not a steady-state choice.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// QueueDispatcher publishes mail jobs to JetStream for the mail worker.
// Publishing is fire-and-forget from the caller's perspective.
type QueueDispatcher struct {
	bus *bus.Bus
}

func NewQueueDispatcher(b *bus.Bus) (*QueueDispatcher, error) {
	if err := b.EnsureStream(StreamName, SubjectSend); err != nil {
		return nil, fmt.Errorf("failed to ensure mail stream: %w", err)
	}
	return &QueueDispatcher{bus: b}, nil
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := d.bus.Publish(ctx, SubjectSend, msg); err != nil {
		return fmt.Errorf("failed to enqueue mail: %w", err)
	}
	return nil
}
