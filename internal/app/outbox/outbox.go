// Package outbox defines how committed domain events are encoded and staged for relay.
// Storage and the relay worker live in infra.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutorbook/internal/domain/shared/events"
)

// EventRecord is one encoded event waiting in the outbox. Aggregate becomes the partition key.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox stores encoded events until a worker relays them to the broker. Add must be
// idempotent on record ID.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder marshals the event itself as the payload and tags the record with the
// aggregate kind, the part of the event name before the first dot.
type JSONEventEncoder struct {
	IDGenerator func() string
	Now         func() time.Time
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	name := ev.EventName()
	if name == "" {
		return EventRecord{}, fmt.Errorf("outbox: %T has no event name", ev)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", name, err)
	}
	newID := e.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	occurred := ev.OccurredAt()
	if occurred.IsZero() {
		if e.Now != nil {
			occurred = e.Now()
		} else {
			occurred = time.Now().UTC()
		}
	}
	kind, _, _ := strings.Cut(name, ".")
	return EventRecord{
		ID:         newID(),
		Name:       name,
		Payload:    payload,
		OccurredAt: occurred,
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{"aggregate-type": kind},
	}, nil
}

// Record encodes every event before adding any, so an encoding failure stages nothing.
// It returns how many records were added before an Add failure.
func Record(ctx context.Context, box Outbox, encoder EventEncoder, evs ...events.DomainEvent) (int, error) {
	if box == nil || len(evs) == 0 {
		return 0, nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	records := make([]EventRecord, 0, len(evs))
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return 0, err
		}
		records = append(records, rec)
	}
	for i, rec := range records {
		if err := box.Add(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(records), nil
}
