package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/dto"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/middleware"
	"tutorbook/internal/app/policies"
	"tutorbook/internal/app/uow"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/events"
)

const (
	completeElapsedKey = "booking.complete_elapsed"
	markPaidKey        = "booking.mark_paid"
	defaultSweepLimit  = 200
)

// CompleteElapsedCommand completes every confirmed booking whose end has passed.
type CompleteElapsedCommand struct {
	Limit int
}

func (c CompleteElapsedCommand) Key() string             { return completeElapsedKey }
func (c CompleteElapsedCommand) RequiredRole() auth.Role { return auth.RoleSystem }
func (c CompleteElapsedCommand) ManagesOwnUnit() bool    { return true }

type CompleteElapsedHandler struct {
	UoWFactory uow.UoWFactory
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
}

// Handle completes each elapsed booking in its own unit so one failure does not hold back the rest.
func (h *CompleteElapsedHandler) Handle(ctx context.Context, cmd CompleteElapsedCommand) (*dto.CompletionSweepResult, error) {
	now := handlersupport.Now(h.Now)
	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	logger := handlersupport.Logger(h.Logger)

	var due []*domainbooking.Booking
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	due, err = unit.Bookings().ListElapsed(execCtx, now, limit)
	if cleanup != nil {
		cleanup()
	}
	if err != nil {
		return nil, err
	}

	result := &dto.CompletionSweepResult{Completed: make([]string, 0, len(due))}
	for _, candidate := range due {
		var pending []events.DomainEvent
		err := handlersupport.InUnit(ctx, h.UoWFactory, nil, nil, func(ctx context.Context, unit uow.UnitOfWork) error {
			b, err := unit.Bookings().ByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if err := b.Complete(now); err != nil {
				return err
			}
			if err := unit.Bookings().Save(ctx, b); err != nil {
				return err
			}
			pending = b.PullEvents()
			return nil
		})
		if err != nil {
			if errors.Is(err, domainbooking.ErrNotConfirmed) {
				continue
			}
			result.Failed++
			logger.Warn("booking completion failed", "booking_id", candidate.ID, "err", err)
			continue
		}
		handlersupport.Publish(ctx, h.Events, pending)
		result.Completed = append(result.Completed, string(candidate.ID))
	}
	if len(result.Completed) > 0 || result.Failed > 0 {
		logger.Info("completion sweep finished", "completed", len(result.Completed), "failed", result.Failed)
	}
	return result, nil
}

// MarkPaidCommand records a captured payment. It is sent by the payment intake only.
type MarkPaidCommand struct {
	BookingID string
	EventID   string
}

func (c MarkPaidCommand) Key() string             { return markPaidKey }
func (c MarkPaidCommand) RequiredRole() auth.Role { return auth.RoleSystem }

func (c MarkPaidCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return fmt.Errorf("%w: booking id is required", handlersupport.ErrInvalidInput)
	}
	return nil
}

type MarkPaidHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *MarkPaidHandler) Handle(ctx context.Context, cmd MarkPaidCommand) (*dto.BookingActionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	var booking *domainbooking.Booking
	err := handlersupport.InUnit(ctx, h.UoWFactory, nil, nil, func(ctx context.Context, unit uow.UnitOfWork) error {
		id := domainbooking.BookingID(cmd.BookingID)
		if err := unit.Bookings().MarkPaid(ctx, id); err != nil {
			return err
		}
		var err error
		booking, err = unit.Bookings().ByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	handlersupport.Logger(h.Logger).Info("booking marked paid", "booking_id", booking.ID, "event_id", cmd.EventID)
	return dto.MapBookingAction(booking), nil
}

var (
	_ commands.Handler[CompleteElapsedCommand, *dto.CompletionSweepResult] = (*CompleteElapsedHandler)(nil)
	_ commands.Handler[MarkPaidCommand, *dto.BookingActionResult]          = (*MarkPaidHandler)(nil)
	_ middleware.SelfManagedCommand                                        = CompleteElapsedCommand{}
)
