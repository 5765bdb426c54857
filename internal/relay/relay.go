// Package relay mirrors hub events to external systems.
package relay

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/KafClaw/thoughthub/internal/model"
)

// Publisher forwards one event to an external system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, evt model.HubEvent) error
}

// Relay queues events from the hub and hands them to publishers on its own
// goroutine so slow networks never stall an operation.
type Relay struct {
	queue      chan model.HubEvent
	publishers []Publisher
	dropped    atomic.Int64
}

// New creates a relay with a queue of the given size.
func New(size int, publishers ...Publisher) *Relay {
	if size <= 0 {
		size = 256
	}
	return &Relay{queue: make(chan model.HubEvent, size), publishers: publishers}
}

// Deliver enqueues evt. When the queue is full the event is dropped.
func (r *Relay) Deliver(evt model.HubEvent) {
	select {
	case r.queue <- evt:
	default:
		r.dropped.Add(1)
		slog.Warn("Relay queue full, dropping event", "type", evt.Type, "workspace", evt.WorkspaceID)
	}
}

// Dropped returns how many events were discarded.
func (r *Relay) Dropped() int64 { return r.dropped.Load() }

// Run publishes queued events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-r.queue:
			for _, p := range r.publishers {
				if err := p.Publish(ctx, evt); err != nil {
					slog.Warn("Relay publish failed", "publisher", p.Name(), "type", evt.Type, "error", err)
				}
			}
		}
	}
}
