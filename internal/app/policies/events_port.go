package policies

import (
	"context"

	"tutorbook/internal/domain/shared/events"
)

// EventSink accepts committed domain events. Emit never blocks and never fails the caller.
type EventSink interface {
	Emit(ctx context.Context, evs ...events.DomainEvent)
}

type DiscardSink struct{}

func (DiscardSink) Emit(context.Context, ...events.DomainEvent) {}
