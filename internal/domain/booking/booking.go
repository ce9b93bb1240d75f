package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorbook/internal/domain/availability"
	"tutorbook/internal/domain/shared/events"
	"tutorbook/internal/domain/shared/money"
	"tutorbook/internal/domain/shared/timewindow"
)

var (
	ErrInvalidState    = errors.New("booking: invalid state transition")
	ErrNotPending      = errors.New("booking: booking is not pending")
	ErrNotConfirmed    = errors.New("booking: booking is not confirmed")
	ErrNotYetElapsed   = errors.New("booking: booking has not ended yet")
	ErrPayoutNotReady  = errors.New("booking: provider payouts are not set up")
	ErrBookingNotFound = errors.New("booking: not found")
	ErrConsumerMissing = errors.New("booking: consumer id required")
	ErrSelfBooking     = errors.New("booking: provider cannot book own slot")
	ErrInvalidPrice    = errors.New("booking: price must be a non-negative amount with currency")
	ErrNotOwned        = errors.New("booking: not owned by provider")
	ErrStaleBooking    = errors.New("booking: modified concurrently")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// TransitionError carries the status a booking was actually in when an operation was refused.
type TransitionError struct {
	Op      string
	Current Status
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("booking: cannot %s a %s booking", e.Op, e.Current)
}

func (e *TransitionError) Unwrap() error { return e.Err }

type Booking struct {
	ID               BookingID
	SlotID           availability.SlotID
	ProviderID       string
	ConsumerID       string
	Start            time.Time
	End              time.Time
	Price            money.Money
	Paid             bool
	Status           Status
	MeetingReference string
	Notes            string
	CancelReason     string
	CreatedAt        time.Time
	StatusChangedAt  time.Time
	Version          int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Save fails with ErrStaleBooking when the stored Version differs from booking.Version and
	// bumps Version on success. Paid is never overwritten.
	Save(ctx context.Context, booking *Booking) error
	ListByProvider(ctx context.Context, providerID string) ([]*Booking, error)
	ListByConsumer(ctx context.Context, consumerID string) ([]*Booking, error)
	// ListElapsed returns confirmed bookings whose end is not after now.
	ListElapsed(ctx context.Context, now time.Time, limit int) ([]*Booking, error)
	MarkPaid(ctx context.Context, id BookingID) error
}

type CreateParams struct {
	ID         BookingID
	Slot       availability.TimeSlot
	ConsumerID string
	Price      money.Money
	Notes      string
	CreatedAt  time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	consumer := strings.TrimSpace(params.ConsumerID)
	if consumer == "" {
		return nil, ErrConsumerMissing
	}
	if consumer == params.Slot.ProviderID {
		return nil, ErrSelfBooking
	}
	if params.Price.Amount < 0 || len(params.Price.Currency) != 3 {
		return nil, ErrInvalidPrice
	}
	window := params.Slot.Window()
	b := &Booking{
		ID:              params.ID,
		SlotID:          params.Slot.ID,
		ProviderID:      params.Slot.ProviderID,
		ConsumerID:      consumer,
		Start:           window.Start,
		End:             window.End,
		Price:           params.Price,
		Status:          StatusPending,
		Notes:           strings.TrimSpace(params.Notes),
		CreatedAt:       params.CreatedAt,
		StatusChangedAt: params.CreatedAt,
	}
	b.Record(BookingRequested{Snapshot: b.snapshot(), Notes: b.Notes, At: b.CreatedAt})
	return b, nil
}

func (b *Booking) Window() timewindow.Window {
	return timewindow.Window{Start: b.Start, End: b.End}
}

// Confirm moves a pending booking to confirmed. Paid bookings need a payout-ready provider.
func (b *Booking) Confirm(meetingReference string, payoutReady bool, now time.Time) error {
	if b.Status != StatusPending {
		return &TransitionError{Op: "confirm", Current: b.Status, Err: ErrNotPending}
	}
	if b.Price.IsPositive() && !payoutReady {
		return ErrPayoutNotReady
	}
	b.MeetingReference = meetingReference
	b.transition(StatusConfirmed, now)
	b.Record(BookingConfirmed{Snapshot: b.snapshot(), MeetingReference: b.MeetingReference, At: now})
	return nil
}

func (b *Booking) Reject(reason string, now time.Time) error {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return &TransitionError{Op: "reject", Current: b.Status, Err: ErrInvalidState}
	}
	b.CancelReason = strings.TrimSpace(reason)
	b.transition(StatusCancelled, now)
	b.Record(BookingRejected{Snapshot: b.snapshot(), Reason: b.CancelReason, At: now})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return &TransitionError{Op: "complete", Current: b.Status, Err: ErrNotConfirmed}
	}
	if !b.Window().Elapsed(now) {
		return fmt.Errorf("%w: ends at %s", ErrNotYetElapsed, b.End.Format(time.DateTime))
	}
	b.transition(StatusCompleted, now)
	b.Record(BookingCompleted{Snapshot: b.snapshot(), At: now})
	return nil
}

// OwnedBy reports whether providerID may act on the booking.
func (b *Booking) OwnedBy(providerID string) bool {
	return b.ProviderID == providerID
}

func (b *Booking) transition(to Status, now time.Time) {
	b.Status = to
	b.StatusChangedAt = now
}

func (b *Booking) snapshot() Snapshot {
	return Snapshot{
		BookingID:  b.ID,
		SlotID:     b.SlotID,
		ProviderID: b.ProviderID,
		ConsumerID: b.ConsumerID,
		Start:      b.Start,
		End:        b.End,
		Price:      b.Price,
	}
}
