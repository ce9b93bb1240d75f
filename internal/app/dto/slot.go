package dto

import (
	"time"

	"tutorbook/internal/domain/availability"
)

type Slot struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	Date       string    `json:"date"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Occupied   bool      `json:"occupied"`
	BookingID  string    `json:"booking_id,omitempty"`
}

type SlotCollection struct {
	Items []Slot `json:"items"`
}

// Conflict describes the slot that blocked a write.
type Conflict struct {
	SlotID string `json:"slot_id"`
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type CloseDayResult struct {
	Date          string `json:"date"`
	Closed        int    `json:"closed"`
	CouldNotClose int    `json:"could_not_close"`
}

type DayFailure struct {
	SourceDate string `json:"source_date"`
	TargetDate string `json:"target_date"`
	Error      string `json:"error"`
}

type CopyWeekResult struct {
	Created  []Slot       `json:"created"`
	Failures []DayFailure `json:"failures,omitempty"`
}

func MapSlot(s availability.TimeSlot) Slot {
	w := s.Window()
	return Slot{
		ID:         string(s.ID),
		ProviderID: s.ProviderID,
		Date:       s.Date.String(),
		Start:      s.Start.String(),
		End:        s.End.String(),
		StartsAt:   w.Start,
		EndsAt:     w.End,
		Occupied:   s.Occupied,
		BookingID:  s.BookingID,
	}
}

func MapSlots(slots []availability.TimeSlot) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		out = append(out, MapSlot(s))
	}
	return out
}

func MapConflict(s availability.TimeSlot) Conflict {
	return Conflict{SlotID: string(s.ID), Date: s.Date.String(), Start: s.Start.String(), End: s.End.String()}
}

func MapDayFailures(failures []availability.DayFailure) []DayFailure {
	if len(failures) == 0 {
		return nil
	}
	out := make([]DayFailure, 0, len(failures))
	for _, f := range failures {
		out = append(out, DayFailure{SourceDate: f.Source.String(), TargetDate: f.Target.String(), Error: f.Err.Error()})
	}
	return out
}
