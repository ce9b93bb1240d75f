package support

import (
	"errors"
	"log/slog"
	"time"

	"tutorbook/internal/domain/shared/timewindow"
)

// ErrInvalidInput marks command and query fields rejected before any state is read.
var ErrInvalidInput = errors.New("invalid input")

// Now reads the injected clock, falling back to the local wall clock as a naive instant.
func Now(clock func() time.Time) time.Time {
	if clock == nil {
		return timewindow.Naive(time.Now())
	}
	return clock()
}

func Logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
