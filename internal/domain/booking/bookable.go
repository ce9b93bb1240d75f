package booking

import (
	"errors"
	"time"

	"tutorbook/internal/domain/availability"
)

var ErrSlotInPast = errors.New("booking: slot has already started")

// ValidateBookable rejects slots whose start is not in the future.
func ValidateBookable(slot availability.TimeSlot, now time.Time) error {
	if !slot.Window().Start.After(now) {
		return ErrSlotInPast
	}
	return nil
}
