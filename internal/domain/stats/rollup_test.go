package stats

import (
	"errors"
	"testing"
	"time"

	"tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/money"
)

var now = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

func record(id string, start time.Time, amount int64, status booking.Status, paid bool) *booking.Booking {
	return &booking.Booking{
		ID:         booking.BookingID(id),
		ProviderID: "p1",
		ConsumerID: "s1",
		Start:      start,
		End:        start.Add(time.Hour),
		Price:      money.Must(amount, "EUR"),
		Paid:       paid,
		Status:     status,
	}
}

func TestRollup_EarningsAfterFee(t *testing.T) {
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	bookings := []*booking.Booking{
		record("b1", day, 1000, booking.StatusCompleted, true),
		record("b2", day.Add(2*time.Hour), 2000, booking.StatusCompleted, true),
		record("b3", day.AddDate(0, 0, 1), 3000, booking.StatusCompleted, true),
	}

	r, err := Aggregator{}.Rollup("p1", "all", bookings, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.GrossEarnings.Amount != 6000 {
		t.Fatalf("expected gross 60.00, got %s", r.GrossEarnings)
	}
	if r.NetEarnings.Amount != 4800 {
		t.Fatalf("expected net 48.00, got %s", r.NetEarnings)
	}
	if r.PlatformFee.Amount != 1200 || r.PlatformFeeRate != 0.2 {
		t.Fatalf("unexpected fee %s at rate %v", r.PlatformFee, r.PlatformFeeRate)
	}
	if r.BookingCount != 3 || r.CompletedHours != 3 {
		t.Fatalf("expected 3 bookings / 3h, got %d / %v", r.BookingCount, r.CompletedHours)
	}
	if len(r.Series) != 2 || r.Series[0].Earnings.Amount != 3000 || r.Series[0].BookingCount != 2 {
		t.Fatalf("unexpected series %#v", r.Series)
	}
}

func TestRollup_CountingRules(t *testing.T) {
	start := now.Add(-48 * time.Hour)
	bookings := []*booking.Booking{
		record("unpaid-completed", start, 1000, booking.StatusCompleted, false),
		record("paid-confirmed", start, 500, booking.StatusConfirmed, true),
		record("pending", start, 700, booking.StatusPending, false),
		record("paid-cancelled", start, 300, booking.StatusCancelled, true),
		record("old", now.AddDate(0, 0, -10), 9000, booking.StatusCompleted, true),
		{ID: "other", ProviderID: "p2", Start: start, End: start.Add(time.Hour), Price: money.Must(100, "EUR"), Paid: true, Status: booking.StatusCompleted},
	}

	r, err := Aggregator{}.Rollup("p1", "7d", bookings, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.GrossEarnings.Amount != 800 {
		t.Fatalf("expected paid bookings only (800), got %d", r.GrossEarnings.Amount)
	}
	if r.BookingCount != 2 {
		t.Fatalf("expected confirmed+completed = 2, got %d", r.BookingCount)
	}
	if r.CompletedHours != 1 {
		t.Fatalf("expected 1 completed hour, got %v", r.CompletedHours)
	}
}

func TestRollup_EmptyWindow(t *testing.T) {
	r, err := Aggregator{Currency: "EUR"}.Rollup("p1", "24h", nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.GrossEarnings.IsZero() || r.BookingCount != 0 || len(r.Series) != 0 {
		t.Fatalf("expected empty rollup, got %#v", r)
	}
}

func TestRollup_MixedCurrencies(t *testing.T) {
	a := record("a", now, 100, booking.StatusCompleted, true)
	b := record("b", now, 100, booking.StatusCompleted, true)
	b.Price = money.Must(100, "USD")
	if _, err := (Aggregator{}).Rollup("p1", "all", []*booking.Booking{a, b}, now); !errors.Is(err, ErrMixedCurrencies) {
		t.Fatalf("expected ErrMixedCurrencies, got %v", err)
	}
}

func TestSeries_ZeroFill(t *testing.T) {
	bookings := []*booking.Booking{
		record("b1", now.Add(-3*24*time.Hour), 1000, booking.StatusCompleted, true),
	}
	sparse, err := Aggregator{}.Series("p1", "7d", bookings, now, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sparse) != 1 {
		t.Fatalf("expected 1 sparse point, got %d", len(sparse))
	}

	filled, err := Aggregator{}.Series("p1", "7d", bookings, now, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filled) != 8 {
		t.Fatalf("expected 8 days from cutoff to today, got %d", len(filled))
	}
	for i := 1; i < len(filled); i++ {
		if !filled[i-1].Date.Before(filled[i].Date) {
			t.Fatalf("series must be ordered by date")
		}
	}

	all, _ := Aggregator{}.Series("p1", "all", bookings, now, true)
	if len(all) != 1 {
		t.Fatalf("zero fill must be ignored for all, got %d points", len(all))
	}
}
