package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tutorbook/internal/app/uow"
	domainavailability "tutorbook/internal/domain/availability"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/money"
	"tutorbook/internal/domain/shared/timewindow"
)

var day = timewindow.Date{Year: 2025, Month: time.March, Day: 10}

func freeSlot(id string) domainavailability.TimeSlot {
	return domainavailability.TimeSlot{
		ID:         domainavailability.SlotID(id),
		ProviderID: "p1",
		Date:       day,
		Start:      timewindow.MustClock(9, 0),
		End:        timewindow.MustClock(10, 0),
	}
}

func TestSlotRepository_OccupyHasOneWinner(t *testing.T) {
	repo := NewSlotRepository()
	ctx := context.Background()
	if err := repo.Insert(ctx, freeSlot("s1")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const racers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bookingID := fmt.Sprintf("b%d", i)
			_, err := repo.Occupy(ctx, "s1", bookingID)
			switch {
			case err == nil:
				mu.Lock()
				winners = append(winners, bookingID)
				mu.Unlock()
			case !errors.Is(err, domainavailability.ErrSlotUnavailable):
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %v", winners)
	}
	slot, _ := repo.ByID(ctx, "s1")
	if !slot.Occupied || slot.BookingID != winners[0] {
		t.Fatalf("slot must be held by %s, got %#v", winners[0], slot)
	}
}

func TestSlotRepository_ReleaseOnlyByHolder(t *testing.T) {
	repo := NewSlotRepository()
	ctx := context.Background()
	_ = repo.Insert(ctx, freeSlot("s1"))
	if _, err := repo.Occupy(ctx, "s1", "b1"); err != nil {
		t.Fatalf("occupy: %v", err)
	}

	if err := repo.Release(ctx, "s1", "other"); err != nil {
		t.Fatalf("release by non-holder must be a no-op, got %v", err)
	}
	if slot, _ := repo.ByID(ctx, "s1"); !slot.Occupied {
		t.Fatal("slot must stay occupied after a foreign release")
	}
	if err := repo.Release(ctx, "s1", "b1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if slot, _ := repo.ByID(ctx, "s1"); slot.Occupied || slot.BookingID != "" {
		t.Fatalf("slot must be free, got %#v", slot)
	}
}

func TestSlotRepository_DeleteIfUnchanged(t *testing.T) {
	repo := NewSlotRepository()
	ctx := context.Background()
	snapshot := freeSlot("s1")
	_ = repo.Insert(ctx, snapshot)
	_, _ = repo.Occupy(ctx, "s1", "b1")

	if err := repo.DeleteIfUnchanged(ctx, snapshot); !errors.Is(err, domainavailability.ErrSlotChanged) {
		t.Fatalf("expected ErrSlotChanged, got %v", err)
	}
	_ = repo.Release(ctx, "s1", "b1")
	if err := repo.DeleteIfUnchanged(ctx, snapshot); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.ByID(ctx, "s1"); !errors.Is(err, domainavailability.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestSlotRepository_RangeIsOrdered(t *testing.T) {
	repo := NewSlotRepository()
	ctx := context.Background()
	late := freeSlot("late")
	late.Start, late.End = timewindow.MustClock(14, 0), timewindow.MustClock(15, 0)
	next := freeSlot("next")
	next.Date = day.AddDays(1)
	other := freeSlot("other")
	other.ProviderID = "p2"
	_ = repo.Insert(ctx, late, freeSlot("early"), next, other)

	got, _ := repo.Range(ctx, "p1", day, day.AddDays(1))
	if len(got) != 3 {
		t.Fatalf("expected 3 slots of p1, got %d", len(got))
	}
	if got[0].ID != "early" || got[1].ID != "late" || got[2].ID != "next" {
		t.Fatalf("unexpected order %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestBookingRepository_SaveIsVersioned(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()
	b := &domainbooking.Booking{ID: "b1", ProviderID: "p1", ConsumerID: "s1", Price: money.Must(100, "EUR"), Status: domainbooking.StatusPending}
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	if b.Version != 1 {
		t.Fatalf("expected version 1, got %d", b.Version)
	}

	stale, _ := repo.ByID(ctx, "b1")
	fresh, _ := repo.ByID(ctx, "b1")
	fresh.Status = domainbooking.StatusConfirmed
	if err := repo.Save(ctx, fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}
	stale.Status = domainbooking.StatusCancelled
	if err := repo.Save(ctx, stale); !errors.Is(err, domainbooking.ErrStaleBooking) {
		t.Fatalf("expected ErrStaleBooking, got %v", err)
	}
}

func TestBookingRepository_SaveKeepsPaid(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()
	b := &domainbooking.Booking{ID: "b1", ProviderID: "p1", Status: domainbooking.StatusPending}
	_ = repo.Save(ctx, b)
	if err := repo.MarkPaid(ctx, "b1"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	b.Status = domainbooking.StatusConfirmed
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := repo.ByID(ctx, "b1")
	if !got.Paid || !b.Paid {
		t.Fatal("a lifecycle save must not clear the paid flag")
	}
	if err := repo.MarkPaid(ctx, "missing"); !errors.Is(err, domainbooking.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestBookingRepository_ListElapsed(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	add := func(id string, end time.Time, status domainbooking.Status) {
		_ = repo.Save(ctx, &domainbooking.Booking{ID: domainbooking.BookingID(id), ProviderID: "p1", Start: end.Add(-time.Hour), End: end, Status: status})
	}
	add("later", now.Add(-time.Minute), domainbooking.StatusConfirmed)
	add("first", now.Add(-2*time.Hour), domainbooking.StatusConfirmed)
	add("future", now.Add(time.Hour), domainbooking.StatusConfirmed)
	add("pending", now.Add(-time.Hour), domainbooking.StatusPending)

	got, _ := repo.ListElapsed(ctx, now, 0)
	if len(got) != 2 || got[0].ID != "first" || got[1].ID != "later" {
		t.Fatalf("unexpected elapsed bookings %#v", got)
	}
	limited, _ := repo.ListElapsed(ctx, now, 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestUnit_RollbackUndoesWrites(t *testing.T) {
	slots := NewSlotRepository()
	bookings := NewBookingRepository()
	factory := Factory{SlotsRepo: slots, BookingsRepo: bookings}
	ctx := context.Background()
	_ = slots.Insert(ctx, freeSlot("s1"))

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := unit.Slots().Occupy(ctx, "s1", "b1"); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if err := unit.Slots().Insert(ctx, freeSlot("s2")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := unit.Bookings().Save(ctx, &domainbooking.Booking{ID: "b1", ProviderID: "p1", SlotID: "s1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if slot, _ := slots.ByID(ctx, "s1"); slot.Occupied {
		t.Fatal("occupy must be undone")
	}
	if _, err := slots.ByID(ctx, "s2"); !errors.Is(err, domainavailability.ErrSlotNotFound) {
		t.Fatal("insert must be undone")
	}
	if _, err := bookings.ByID(ctx, "b1"); !errors.Is(err, domainbooking.ErrBookingNotFound) {
		t.Fatal("save must be undone")
	}
}

func TestUnit_CommitKeepsWrites(t *testing.T) {
	slots := NewSlotRepository()
	factory := Factory{SlotsRepo: slots, BookingsRepo: NewBookingRepository()}
	ctx := context.Background()

	unit, _ := factory.Begin(ctx, uow.TxOptions{})
	_ = unit.Slots().Insert(ctx, freeSlot("s1"))
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	_ = unit.Rollback(ctx)
	if _, err := slots.ByID(ctx, "s1"); err != nil {
		t.Fatalf("rollback after commit must not undo, got %v", err)
	}
}

func TestFactory_Misconfigured(t *testing.T) {
	if _, err := (Factory{}).Begin(context.Background(), uow.TxOptions{}); !errors.Is(err, ErrFactoryMisconfigured) {
		t.Fatalf("expected ErrFactoryMisconfigured, got %v", err)
	}
}

func TestUnit_ReadOnlyRefusesWrites(t *testing.T) {
	slots := NewSlotRepository()
	ctx := context.Background()
	if err := slots.Insert(ctx, freeSlot("s1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	unit, err := Factory{SlotsRepo: slots, BookingsRepo: NewBookingRepository()}.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = unit.Rollback(ctx) }()

	if _, err := unit.Slots().ByID(ctx, "s1"); err != nil {
		t.Fatalf("reads must work, got %v", err)
	}
	if _, err := unit.Slots().Occupy(ctx, "s1", "b1"); !errors.Is(err, uow.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := unit.Slots().Insert(ctx, freeSlot("s2")); !errors.Is(err, uow.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := unit.Bookings().MarkPaid(ctx, "b1"); !errors.Is(err, uow.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if got, _ := slots.ByID(ctx, "s1"); got.Occupied {
		t.Fatal("refused write must not reach the store")
	}
}
