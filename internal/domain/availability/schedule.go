package availability

import (
	"sort"
	"time"

	"tutorbook/internal/domain/shared/events"
	"tutorbook/internal/domain/shared/timewindow"
)

// DaySchedule holds every slot of one provider on one date and guards the overlap invariant.
type DaySchedule struct {
	ProviderID string
	Date       timewindow.Date
	Slots      []TimeSlot
	events.EventRecorder
}

func NewDaySchedule(providerID string, date timewindow.Date, slots []TimeSlot) *DaySchedule {
	d := &DaySchedule{ProviderID: providerID, Date: date}
	for _, s := range slots {
		if s.ProviderID == providerID && s.Date == date {
			d.Slots = append(d.Slots, s)
		}
	}
	sortSlots(d.Slots)
	return d
}

// Conflict returns the first existing slot overlapping candidate, occupied or not.
func (d *DaySchedule) Conflict(candidate TimeSlot) (TimeSlot, bool) {
	for _, s := range d.Slots {
		if s.ID == candidate.ID {
			continue
		}
		if s.Overlaps(candidate) {
			return s, true
		}
	}
	return TimeSlot{}, false
}

func (d *DaySchedule) Add(params NewSlotParams) (TimeSlot, error) {
	params.ProviderID = d.ProviderID
	params.Date = d.Date
	slot, err := NewSlot(params)
	if err != nil {
		return TimeSlot{}, err
	}
	if conflict, ok := d.Conflict(slot); ok {
		return TimeSlot{}, &OverlapError{Candidate: slot, Conflict: conflict}
	}
	d.appendSlot(slot)
	d.Record(SlotPublishedEvent(slot))
	return slot, nil
}

// CopyFrom copies every free slot of source onto this day. Either all copies fit or none is added.
func (d *DaySchedule) CopyFrom(source *DaySchedule, newID func() SlotID, now time.Time) ([]TimeSlot, error) {
	if source.Date == d.Date {
		return nil, ErrSameDay
	}
	staged := NewDaySchedule(d.ProviderID, d.Date, d.Slots)
	copies := make([]TimeSlot, 0, len(source.Slots))
	for _, s := range source.Slots {
		if s.Occupied {
			continue
		}
		slot, err := staged.Add(NewSlotParams{ID: newID(), Start: s.Start, End: s.End, CreatedAt: now})
		if err != nil {
			return nil, err
		}
		copies = append(copies, slot)
	}
	d.Slots = staged.Slots
	for _, ev := range staged.PullEvents() {
		d.Record(ev)
	}
	return copies, nil
}

// Close withdraws every free slot. Occupied slots stay and are counted as kept.
func (d *DaySchedule) Close(now time.Time) (removed []TimeSlot, kept int) {
	remaining := d.Slots[:0:0]
	for _, s := range d.Slots {
		if s.Occupied {
			remaining = append(remaining, s)
			kept++
			continue
		}
		removed = append(removed, s)
	}
	d.Slots = remaining
	d.Record(DayClosedEvent(d.ProviderID, d.Date, len(removed), kept, now))
	return removed, kept
}

func (d *DaySchedule) appendSlot(s TimeSlot) {
	d.Slots = append(d.Slots, s)
	sortSlots(d.Slots)
}

func sortSlots(slots []TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date.Before(slots[j].Date)
		}
		return slots[i].Start < slots[j].Start
	})
}

// SortSlots orders slots by date then start time.
func SortSlots(slots []TimeSlot) {
	sortSlots(slots)
}
