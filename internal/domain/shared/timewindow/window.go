package timewindow

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("timewindow: start must be before end")
)

// Window represents a half-open interval [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (Window, error) {
	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return ErrInvalidRange
	}
	if !w.End.After(w.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w Window) Hours() float64 {
	return w.Duration().Hours()
}

func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Elapsed reports whether now has reached the end of the window.
func (w Window) Elapsed(now time.Time) bool {
	return !now.Before(w.End)
}
