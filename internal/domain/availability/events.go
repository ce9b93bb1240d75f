package availability

import (
	"time"

	"tutorbook/internal/domain/shared/timewindow"
)

type SlotPublished struct {
	SlotID     SlotID    `json:"slot_id"`
	ProviderID string    `json:"provider_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	At         time.Time `json:"at"`
}

func (e SlotPublished) EventName() string     { return "slot.published" }
func (e SlotPublished) AggregateID() string   { return e.ProviderID }
func (e SlotPublished) OccurredAt() time.Time { return e.At }

type SlotRemoved struct {
	SlotID     SlotID    `json:"slot_id"`
	ProviderID string    `json:"provider_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	At         time.Time `json:"at"`
}

func (e SlotRemoved) EventName() string     { return "slot.removed" }
func (e SlotRemoved) AggregateID() string   { return e.ProviderID }
func (e SlotRemoved) OccurredAt() time.Time { return e.At }

type DayClosed struct {
	ProviderID string          `json:"provider_id"`
	Date       timewindow.Date `json:"date"`
	Closed     int             `json:"closed"`
	Kept       int             `json:"kept"`
	At         time.Time       `json:"at"`
}

func (e DayClosed) EventName() string     { return "slot.day_closed" }
func (e DayClosed) AggregateID() string   { return e.ProviderID }
func (e DayClosed) OccurredAt() time.Time { return e.At }

func SlotPublishedEvent(s TimeSlot) SlotPublished {
	w := s.Window()
	return SlotPublished{SlotID: s.ID, ProviderID: s.ProviderID, Start: w.Start, End: w.End, At: s.CreatedAt}
}

func SlotRemovedEvent(s TimeSlot, at time.Time) SlotRemoved {
	w := s.Window()
	return SlotRemoved{SlotID: s.ID, ProviderID: s.ProviderID, Start: w.Start, End: w.End, At: at}
}

func DayClosedEvent(providerID string, date timewindow.Date, closed, kept int, at time.Time) DayClosed {
	return DayClosed{ProviderID: providerID, Date: date, Closed: closed, Kept: kept, At: at}
}
