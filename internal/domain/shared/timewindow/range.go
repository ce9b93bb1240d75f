package timewindow

import (
	"errors"
	"strings"
	"time"
)

var ErrUnknownRange = errors.New("timewindow: unknown range")

// Range names a window relative to "now" used for dashboards.
type Range string

const (
	RangeDay   Range = "24h"
	RangeWeek  Range = "7d"
	RangeMonth Range = "30d"
	RangeYear  Range = "1y"
	RangeAll   Range = "all"
)

func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case RangeDay, RangeWeek, RangeMonth, RangeYear, RangeAll:
		return r, nil
	case "":
		return RangeAll, nil
	default:
		return "", ErrUnknownRange
	}
}

// Cutoff returns the earliest instant covered by the range. ok is false for RangeAll.
func (r Range) Cutoff(now time.Time) (time.Time, bool) {
	switch r {
	case RangeDay:
		return now.Add(-24 * time.Hour), true
	case RangeWeek:
		return now.AddDate(0, 0, -7), true
	case RangeMonth:
		return now.AddDate(0, 0, -30), true
	case RangeYear:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

func (r Range) Includes(t, now time.Time) bool {
	cutoff, ok := r.Cutoff(now)
	if !ok {
		return true
	}
	return !t.Before(cutoff)
}
