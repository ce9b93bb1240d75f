package asynqtask

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	bookinghandlers "tutorbook/internal/app/handlers/booking"
	"tutorbook/internal/app/schedule"
	domainbooking "tutorbook/internal/domain/booking"
)

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

func TestCompleteBookingHandler(t *testing.T) {
	task := asynq.NewTask(schedule.TaskCompleteBooking, []byte(`{"booking_id":"b1"}`))
	cases := []struct {
		name    string
		result  error
		wantErr bool
	}{
		{"completed", nil, false},
		{"already cancelled", domainbooking.ErrNotConfirmed, false},
		{"deleted", domainbooking.ErrBookingNotFound, false},
		{"too early", domainbooking.ErrNotYetElapsed, true},
	}
	for _, tc := range cases {
		var sent bookinghandlers.CompleteBookingCommand
		bus := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if p, ok := auth.FromContext(ctx); !ok || !p.IsSystem() {
				return nil, auth.ErrForbidden
			}
			sent = cmd.(bookinghandlers.CompleteBookingCommand)
			return nil, tc.result
		})
		err := CompleteBookingHandler(bus, slog.Default())(context.Background(), task)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if sent.BookingID != "b1" {
			t.Fatalf("%s: expected b1, got %+v", tc.name, sent)
		}
	}
}

func TestCompleteBookingHandler_BadPayloadSkipsRetry(t *testing.T) {
	task := asynq.NewTask(schedule.TaskCompleteBooking, []byte(`nope`))
	err := CompleteBookingHandler(busFunc(nil), slog.Default())(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
