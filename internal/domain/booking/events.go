package booking

import (
	"time"

	"tutorbook/internal/domain/availability"
	"tutorbook/internal/domain/shared/money"
)

// Snapshot is the payload shared by all booking events.
type Snapshot struct {
	BookingID  BookingID           `json:"booking_id"`
	SlotID     availability.SlotID `json:"slot_id"`
	ProviderID string              `json:"provider_id"`
	ConsumerID string              `json:"consumer_id"`
	Start      time.Time           `json:"start"`
	End        time.Time           `json:"end"`
	Price      money.Money         `json:"price"`
}

type BookingRequested struct {
	Snapshot
	Notes string    `json:"notes,omitempty"`
	At    time.Time `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	Snapshot
	MeetingReference string    `json:"meeting_reference"`
	At               time.Time `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	Snapshot
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return string(e.BookingID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	Snapshot
	At time.Time `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }
