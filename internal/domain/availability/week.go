package availability

import (
	"fmt"
	"strings"

	"tutorbook/internal/domain/shared/timewindow"
)

const DaysPerWeek = 7

// DayPair maps one source day of a week copy to its target one week later.
type DayPair struct {
	Source timewindow.Date
	Target timewindow.Date
}

func WeekPairs(weekStart timewindow.Date) []DayPair {
	pairs := make([]DayPair, 0, DaysPerWeek)
	for i := 0; i < DaysPerWeek; i++ {
		src := weekStart.AddDays(i)
		pairs = append(pairs, DayPair{Source: src, Target: src.AddDays(DaysPerWeek)})
	}
	return pairs
}

type DayFailure struct {
	DayPair
	Err error
}

// CopyWeekError lists the days of a week copy that were skipped. Other days were committed.
type CopyWeekError struct {
	Failures []DayFailure
}

func (e *CopyWeekError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s->%s: %v", f.Source, f.Target, f.Err))
	}
	return "availability: week copy incomplete: " + strings.Join(parts, "; ")
}

func (e *CopyWeekError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}
