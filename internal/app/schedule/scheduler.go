package schedule

import (
	"context"
	"time"
)

// TaskCompleteBooking asks a worker to complete a confirmed booking once it has ended.
const TaskCompleteBooking = "booking:complete"

type CompleteBookingPayload struct {
	BookingID string `json:"booking_id"`
}

type Scheduler interface {
	Schedule(ctx context.Context, name string, payload any, runAt time.Time) error
}

// Noop drops every task; the periodic completion sweep covers elapsed bookings on its own.
type Noop struct{}

func (Noop) Schedule(context.Context, string, any, time.Time) error { return nil }
