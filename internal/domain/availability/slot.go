package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorbook/internal/domain/shared/timewindow"
)

var (
	ErrInvalidRange    = errors.New("availability: slot start must be before end")
	ErrOverlap         = errors.New("availability: slot overlaps an existing slot")
	ErrSlotNotFound    = errors.New("availability: slot not found")
	ErrSlotOccupied    = errors.New("availability: slot is occupied")
	ErrSlotUnavailable = errors.New("availability: slot is no longer available")
	ErrSlotChanged     = errors.New("availability: slot changed concurrently")
	ErrSameDay         = errors.New("availability: source and target dates must differ")
	ErrProviderMissing = errors.New("availability: provider id required")
	ErrNotOwned        = errors.New("availability: slot not owned by provider")
)

type SlotID string

// TimeSlot is a bookable window published by a provider. Times are naive wall-clock.
type TimeSlot struct {
	ID         SlotID
	ProviderID string
	Date       timewindow.Date
	Start      timewindow.Clock
	End        timewindow.Clock
	Occupied   bool
	BookingID  string
	CreatedAt  time.Time
}

func (s TimeSlot) Window() timewindow.Window {
	return timewindow.Window{Start: s.Date.At(s.Start), End: s.Date.At(s.End)}
}

func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Window().Overlaps(other.Window())
}

func (s TimeSlot) Describe() string {
	return fmt.Sprintf("%s %s-%s", s.Date, s.Start, s.End)
}

type Repository interface {
	ByID(ctx context.Context, id SlotID) (*TimeSlot, error)
	Day(ctx context.Context, providerID string, date timewindow.Date) ([]TimeSlot, error)
	Range(ctx context.Context, providerID string, from, to timewindow.Date) ([]TimeSlot, error)
	Insert(ctx context.Context, slots ...TimeSlot) error
	// DeleteIfUnchanged removes the slot only while its occupancy still matches the given snapshot.
	DeleteIfUnchanged(ctx context.Context, snapshot TimeSlot) error
	// Occupy flips a free slot to occupied for bookingID in a single check-and-set.
	Occupy(ctx context.Context, id SlotID, bookingID string) (*TimeSlot, error)
	// Release frees the slot if bookingID still holds it; missing slots are ignored.
	Release(ctx context.Context, id SlotID, bookingID string) error
}

// OverlapError reports the existing slot that blocks a new one.
type OverlapError struct {
	Candidate TimeSlot
	Conflict  TimeSlot
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("availability: %s overlaps slot %s (%s)", e.Candidate.Describe(), e.Conflict.ID, e.Conflict.Describe())
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// OccupiedError reports the booking that keeps a slot from being removed.
type OccupiedError struct {
	SlotID        SlotID
	BookingID     string
	BookingStatus string
}

func (e *OccupiedError) Error() string {
	if e.BookingStatus != "" {
		return fmt.Sprintf("availability: slot %s is held by booking %s (%s)", e.SlotID, e.BookingID, e.BookingStatus)
	}
	return fmt.Sprintf("availability: slot %s is held by booking %s", e.SlotID, e.BookingID)
}

func (e *OccupiedError) Unwrap() error { return ErrSlotOccupied }

type NewSlotParams struct {
	ID         SlotID
	ProviderID string
	Date       timewindow.Date
	Start      timewindow.Clock
	End        timewindow.Clock
	CreatedAt  time.Time
}

func NewSlot(params NewSlotParams) (TimeSlot, error) {
	if params.ProviderID == "" {
		return TimeSlot{}, ErrProviderMissing
	}
	if params.Date.IsZero() {
		return TimeSlot{}, timewindow.ErrInvalidDate
	}
	if params.Start >= params.End || params.Start < 0 || params.End > timewindow.EndOfDay {
		return TimeSlot{}, ErrInvalidRange
	}
	return TimeSlot{
		ID:         params.ID,
		ProviderID: params.ProviderID,
		Date:       params.Date,
		Start:      params.Start,
		End:        params.End,
		CreatedAt:  params.CreatedAt,
	}, nil
}
