package timewindow

import (
	"errors"
	"testing"
	"time"
)

func TestWindow_Overlaps(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	cases := []struct {
		name string
		a, b Window
		want bool
	}{
		{"partial", Window{at(9, 0), at(10, 0)}, Window{at(9, 30), at(10, 30)}, true},
		{"contained", Window{at(9, 0), at(12, 0)}, Window{at(10, 0), at(11, 0)}, true},
		{"touching end", Window{at(9, 0), at(10, 0)}, Window{at(10, 0), at(11, 0)}, false},
		{"touching start", Window{at(10, 0), at(11, 0)}, Window{at(9, 0), at(10, 0)}, false},
		{"disjoint", Window{at(8, 0), at(9, 0)}, Window{at(13, 0), at(14, 0)}, false},
		{"identical", Window{at(9, 0), at(10, 0)}, Window{at(9, 0), at(10, 0)}, true},
	}
	for _, tc := range cases {
		if got := tc.a.Overlaps(tc.b); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
		if got := tc.b.Overlaps(tc.a); got != tc.want {
			t.Fatalf("%s (swapped): expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestNew_RejectsEmptyAndInverted(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	if _, err := New(start, start); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for empty window, got %v", err)
	}
	if _, err := New(start, start.Add(-time.Minute)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for inverted window, got %v", err)
	}
	w, err := New(start, start.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Hours() != 1.5 {
		t.Fatalf("expected 1.5h, got %v", w.Hours())
	}
}

func TestWindow_Elapsed(t *testing.T) {
	end := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	w := Window{Start: end.Add(-time.Hour), End: end}
	if w.Elapsed(end.Add(-time.Second)) {
		t.Fatal("window must not be elapsed before its end")
	}
	if !w.Elapsed(end) {
		t.Fatal("window must be elapsed at its end")
	}
}

func TestParseClockAndDate(t *testing.T) {
	c, err := ParseClock("09:30")
	if err != nil || c != MustClock(9, 30) {
		t.Fatalf("expected 09:30, got %v (%v)", c, err)
	}
	if c, err := ParseClock("24:00"); err != nil || c != EndOfDay {
		t.Fatalf("expected end of day, got %v (%v)", c, err)
	}
	for _, bad := range []string{"24:01", "9:30", "09:60", "ab:cd"} {
		if _, err := ParseClock(bad); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("expected ErrInvalidClock for %q, got %v", bad, err)
		}
	}

	d, err := ParseDate("2025-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Weekday() != time.Monday {
		t.Fatalf("expected monday, got %s", d.Weekday())
	}
	if got := d.AddDays(7).String(); got != "2025-03-17" {
		t.Fatalf("expected 2025-03-17, got %s", got)
	}
	if got := d.At(MustClock(9, 30)); !got.Equal(time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected instant %s", got)
	}
	if _, err := ParseDate("2025-02-30"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestRange_Includes(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	week, err := ParseRange("7d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !week.Includes(now.AddDate(0, 0, -7), now) {
		t.Fatal("cutoff itself must be included")
	}
	if week.Includes(now.AddDate(0, 0, -8), now) {
		t.Fatal("older start must be excluded")
	}
	if !week.Includes(now.AddDate(0, 1, 0), now) {
		t.Fatal("future start must be included, the window has no upper bound")
	}
	all, _ := ParseRange("")
	if all != RangeAll || !all.Includes(time.Time{}, now) {
		t.Fatal("empty range must default to all and include everything")
	}
	if _, err := ParseRange("2w"); !errors.Is(err, ErrUnknownRange) {
		t.Fatalf("expected ErrUnknownRange, got %v", err)
	}
}

func TestNaive_KeepsWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)
	naive := Naive(local)
	if naive.Hour() != 9 || naive.Location() != time.UTC {
		t.Fatalf("expected 09:00 labelled UTC, got %s", naive)
	}
	back := Localize(naive, loc)
	if !back.Equal(local) {
		t.Fatalf("expected %s, got %s", local, back)
	}
}
