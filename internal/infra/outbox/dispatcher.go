package outbox

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "tutorbook/internal/app/outbox"
	"tutorbook/internal/app/policies"
	"tutorbook/internal/domain/shared/events"
)

const defaultQueueSize = 1024

// Dispatcher is the EventSink used by the command pipeline. Emit only enqueues; Run encodes
// the events and appends them to the outbox. A full queue drops the event with a warning.
type Dispatcher struct {
	box     appoutbox.Outbox
	encoder appoutbox.EventEncoder
	logger  *slog.Logger
	queue   chan events.DomainEvent

	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(box appoutbox.Outbox, encoder appoutbox.EventEncoder, logger *slog.Logger, size int) *Dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	if encoder == nil {
		encoder = appoutbox.JSONEventEncoder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		box:     box,
		encoder: encoder,
		logger:  logger,
		queue:   make(chan events.DomainEvent, size),
		done:    make(chan struct{}),
	}
}

func (d *Dispatcher) Emit(ctx context.Context, evs ...events.DomainEvent) {
	for _, ev := range evs {
		select {
		case <-d.done:
			d.logger.Warn("event dropped, dispatcher stopped", "event", ev.EventName(), "aggregate_id", ev.AggregateID())
		case d.queue <- ev:
		default:
			d.logger.Warn("event dropped, queue full", "event", ev.EventName(), "aggregate_id", ev.AggregateID())
		}
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is already queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.closeOnce.Do(func() { close(d.done) })
	for {
		select {
		case ev := <-d.queue:
			d.store(context.WithoutCancel(ctx), ev)
		case <-ctx.Done():
			d.closeOnce.Do(func() { close(d.done) })
			for {
				select {
				case ev := <-d.queue:
					d.store(context.WithoutCancel(ctx), ev)
				default:
					return ctx.Err()
				}
			}
		}
	}
}

func (d *Dispatcher) store(ctx context.Context, ev events.DomainEvent) {
	if _, err := appoutbox.Record(ctx, d.box, d.encoder, ev); err != nil {
		d.logger.Error("event not stored", "event", ev.EventName(), "aggregate_id", ev.AggregateID(), "err", err)
		return
	}
	d.logger.Debug("event stored", "event", ev.EventName(), "aggregate_id", ev.AggregateID())
}

var _ policies.EventSink = (*Dispatcher)(nil)
