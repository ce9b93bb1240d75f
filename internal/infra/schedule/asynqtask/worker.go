package asynqtask

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	bookinghandlers "tutorbook/internal/app/handlers/booking"
	"tutorbook/internal/app/schedule"
	domainbooking "tutorbook/internal/domain/booking"
)

// Worker runs scheduled tasks through the command bus as the system principal.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

func NewWorker(opt asynq.RedisConnOpt, bus commands.Bus, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
		Logger:      slogAdapter{logger: logger},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(schedule.TaskCompleteBooking, CompleteBookingHandler(bus, logger))
	return &Worker{server: srv, mux: mux, logger: logger}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// CompleteBookingHandler completes the booking named in the task. Bookings that are no longer
// confirmed are done; a booking not yet elapsed is retried.
func CompleteBookingHandler(bus commands.Bus, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p schedule.CompleteBookingPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		cmd := bookinghandlers.NewCompleteBookingCommand("", p.BookingID)
		_, err := bus.Dispatch(auth.WithPrincipal(ctx, auth.System()), cmd)
		switch {
		case err == nil:
			logger.Info("booking completed by schedule", "booking_id", p.BookingID)
			return nil
		case errors.Is(err, domainbooking.ErrNotConfirmed), errors.Is(err, domainbooking.ErrBookingNotFound):
			return nil
		default:
			return err
		}
	}
}

type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(args ...any) { a.logger.Debug(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Info(args ...any)  { a.logger.Info(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Warn(args ...any)  { a.logger.Warn(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Error(args ...any) { a.logger.Error(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Fatal(args ...any) { a.logger.Error(fmt.Sprint(args...), "component", "asynq") }
