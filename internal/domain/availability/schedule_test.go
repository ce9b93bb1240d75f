package availability

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"tutorbook/internal/domain/shared/timewindow"
)

var (
	testDay = timewindow.Date{Year: 2025, Month: time.March, Day: 10}
	testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

func clock(h, m int) timewindow.Clock { return timewindow.MustClock(h, m) }

func sequentialIDs() func() SlotID {
	n := 0
	return func() SlotID {
		n++
		return SlotID(fmt.Sprintf("slot-%d", n))
	}
}

func TestDaySchedule_AddRejectsOverlap(t *testing.T) {
	day := NewDaySchedule("p1", testDay, nil)
	first, err := day.Add(NewSlotParams{ID: "s1", Start: clock(9, 0), End: clock(10, 0), CreatedAt: testNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = day.Add(NewSlotParams{ID: "s2", Start: clock(9, 30), End: clock(10, 30), CreatedAt: testNow})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	var overlap *OverlapError
	if !errors.As(err, &overlap) || overlap.Conflict.ID != first.ID {
		t.Fatalf("expected conflict with %s, got %#v", first.ID, err)
	}
	if len(day.Slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(day.Slots))
	}

	if _, err := day.Add(NewSlotParams{ID: "s3", Start: clock(10, 0), End: clock(11, 0), CreatedAt: testNow}); err != nil {
		t.Fatalf("adjacent slot must be accepted, got %v", err)
	}
	if got := len(day.PendingEvents()); got != 2 {
		t.Fatalf("expected 2 published events, got %d", got)
	}
}

func TestDaySchedule_AddRejectsInvalidRange(t *testing.T) {
	day := NewDaySchedule("p1", testDay, nil)
	if _, err := day.Add(NewSlotParams{ID: "s1", Start: clock(10, 0), End: clock(10, 0)}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := day.Add(NewSlotParams{ID: "s1", Start: clock(11, 0), End: clock(10, 0)}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestDaySchedule_OccupiedSlotsStillBlockOverlap(t *testing.T) {
	existing := TimeSlot{ID: "busy", ProviderID: "p1", Date: testDay, Start: clock(9, 0), End: clock(10, 0), Occupied: true, BookingID: "b1"}
	day := NewDaySchedule("p1", testDay, []TimeSlot{existing})
	if _, err := day.Add(NewSlotParams{ID: "s2", Start: clock(9, 45), End: clock(10, 15)}); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap against occupied slot, got %v", err)
	}
}

func TestDaySchedule_CopyFromIsAllOrNothing(t *testing.T) {
	source := NewDaySchedule("p1", testDay, []TimeSlot{
		{ID: "a", ProviderID: "p1", Date: testDay, Start: clock(9, 0), End: clock(10, 0)},
		{ID: "b", ProviderID: "p1", Date: testDay, Start: clock(11, 0), End: clock(12, 0)},
		{ID: "c", ProviderID: "p1", Date: testDay, Start: clock(13, 0), End: clock(14, 0), Occupied: true, BookingID: "b1"},
	})
	targetDate := testDay.AddDays(1)
	blocker := TimeSlot{ID: "x", ProviderID: "p1", Date: targetDate, Start: clock(11, 30), End: clock(12, 30)}
	target := NewDaySchedule("p1", targetDate, []TimeSlot{blocker})

	if _, err := target.CopyFrom(source, sequentialIDs(), testNow); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if len(target.Slots) != 1 || len(target.PendingEvents()) != 0 {
		t.Fatalf("failed copy must leave target untouched, got %d slots", len(target.Slots))
	}

	clean := NewDaySchedule("p1", targetDate, nil)
	copies, err := clean.CopyFrom(source, sequentialIDs(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(copies) != 2 {
		t.Fatalf("expected 2 copies (occupied skipped), got %d", len(copies))
	}
	for _, c := range copies {
		if c.Date != targetDate || c.Occupied {
			t.Fatalf("unexpected copy %#v", c)
		}
	}
	if len(clean.PendingEvents()) != 2 {
		t.Fatalf("expected 2 events, got %d", len(clean.PendingEvents()))
	}
}

func TestDaySchedule_CopyFromSameDay(t *testing.T) {
	day := NewDaySchedule("p1", testDay, nil)
	if _, err := day.CopyFrom(day, sequentialIDs(), testNow); !errors.Is(err, ErrSameDay) {
		t.Fatalf("expected ErrSameDay, got %v", err)
	}
}

func TestDaySchedule_CloseKeepsOccupied(t *testing.T) {
	day := NewDaySchedule("p1", testDay, []TimeSlot{
		{ID: "a", ProviderID: "p1", Date: testDay, Start: clock(9, 0), End: clock(10, 0)},
		{ID: "b", ProviderID: "p1", Date: testDay, Start: clock(10, 0), End: clock(11, 0), Occupied: true, BookingID: "b1"},
		{ID: "c", ProviderID: "p1", Date: testDay, Start: clock(11, 0), End: clock(12, 0)},
	})
	removed, kept := day.Close(testNow)
	if len(removed) != 2 || kept != 1 {
		t.Fatalf("expected 2 removed and 1 kept, got %d/%d", len(removed), kept)
	}
	if len(day.Slots) != 1 || day.Slots[0].ID != "b" {
		t.Fatalf("expected only occupied slot to remain, got %#v", day.Slots)
	}
	evs := day.PullEvents()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	closed, ok := evs[0].(DayClosed)
	if !ok || closed.Closed != 2 || closed.Kept != 1 {
		t.Fatalf("unexpected event %#v", evs[0])
	}
}

func TestWeekPairs(t *testing.T) {
	pairs := WeekPairs(testDay)
	if len(pairs) != DaysPerWeek {
		t.Fatalf("expected %d pairs, got %d", DaysPerWeek, len(pairs))
	}
	for _, p := range pairs {
		if p.Source.Weekday() != p.Target.Weekday() {
			t.Fatalf("weekday mismatch %s -> %s", p.Source, p.Target)
		}
		if p.Source.AddDays(7) != p.Target {
			t.Fatalf("target must be one week later: %s -> %s", p.Source, p.Target)
		}
	}
}

func TestCopyWeekError_Unwraps(t *testing.T) {
	err := error(&CopyWeekError{Failures: []DayFailure{{DayPair: DayPair{Source: testDay, Target: testDay.AddDays(7)}, Err: &OverlapError{}}}})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected CopyWeekError to unwrap to ErrOverlap")
	}
}
