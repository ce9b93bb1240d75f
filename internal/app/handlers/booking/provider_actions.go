package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/dto"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/policies"
	"tutorbook/internal/app/schedule"
	"tutorbook/internal/app/uow"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/timewindow"
)

const (
	confirmBookingKey  = "booking.confirm"
	rejectBookingKey   = "booking.reject"
	completeBookingKey = "booking.complete"
)

// providerAction is embedded by commands a provider sends about one of its bookings.
type providerAction struct {
	ProviderID string
	BookingID  string
}

func (a providerAction) RequiredRole() auth.Role { return auth.RoleProvider }
func (a providerAction) ActorID() string         { return a.ProviderID }

func (a providerAction) Validate() error {
	if strings.TrimSpace(a.BookingID) == "" {
		return fmt.Errorf("%w: booking id is required", handlersupport.ErrInvalidInput)
	}
	return nil
}

// load fetches the booking and checks ownership. An empty ProviderID is only reachable
// for the system principal.
func (a providerAction) load(ctx context.Context, unit uow.UnitOfWork) (*domainbooking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(a.BookingID))
	if err != nil {
		return nil, err
	}
	if a.ProviderID != "" && !b.OwnedBy(a.ProviderID) {
		return nil, domainbooking.ErrNotOwned
	}
	return b, nil
}

type ConfirmBookingCommand struct{ providerAction }

func NewConfirmBookingCommand(providerID, bookingID string) ConfirmBookingCommand {
	return ConfirmBookingCommand{providerAction{ProviderID: providerID, BookingID: bookingID}}
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

type ConfirmBookingHandler struct {
	UoWFactory uow.UoWFactory
	Payouts    policies.PayoutPort
	Meetings   policies.MeetingPort
	Scheduler  schedule.Scheduler
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
	// Location turns the naive booking end into an absolute instant for the task queue.
	Location *time.Location
}

// Handle confirms a pending booking. Paid bookings need a payout-ready provider; otherwise the
// booking stays pending and ErrPayoutNotReady is returned.
func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*dto.BookingActionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Now)
	var booking *domainbooking.Booking
	err := handlersupport.InUnit(ctx, h.UoWFactory, nil, nil, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		booking, err = cmd.load(ctx, unit)
		if err != nil {
			return err
		}
		ready, ref := true, ""
		if booking.Status == domainbooking.StatusPending {
			if booking.Price.IsPositive() {
				if ready, err = h.payoutReady(ctx, booking.ProviderID); err != nil {
					return err
				}
			}
			if ready && h.Meetings != nil {
				if ref, err = h.Meetings.Reference(ctx, booking); err != nil {
					return fmt.Errorf("booking: meeting reference: %w", err)
				}
			}
		}
		if err := booking.Confirm(ref, ready, now); err != nil {
			return err
		}
		return unit.Bookings().Save(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	logger := handlersupport.Logger(h.Logger)
	handlersupport.Publish(ctx, h.Events, booking.PullEvents())
	if h.Scheduler != nil {
		payload := schedule.CompleteBookingPayload{BookingID: string(booking.ID)}
		if err := h.Scheduler.Schedule(ctx, schedule.TaskCompleteBooking, payload, timewindow.Localize(booking.End, h.Location)); err != nil {
			logger.Warn("completion task not scheduled", "booking_id", booking.ID, "err", err)
		}
	}
	logger.Info("booking confirmed", "booking_id", booking.ID, "provider_id", booking.ProviderID, "meeting_reference", booking.MeetingReference)
	return dto.MapBookingAction(booking), nil
}

func (h *ConfirmBookingHandler) payoutReady(ctx context.Context, providerID string) (bool, error) {
	if h.Payouts == nil {
		return false, nil
	}
	ready, err := h.Payouts.IsPayoutReady(ctx, providerID)
	if err != nil {
		return false, fmt.Errorf("booking: payout lookup: %w", err)
	}
	return ready, nil
}

type RejectBookingCommand struct {
	providerAction
	Reason string
}

func NewRejectBookingCommand(providerID, bookingID, reason string) RejectBookingCommand {
	return RejectBookingCommand{providerAction: providerAction{ProviderID: providerID, BookingID: bookingID}, Reason: reason}
}

func (c RejectBookingCommand) Key() string { return rejectBookingKey }

type RejectBookingHandler struct {
	UoWFactory uow.UoWFactory
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
}

// Handle cancels a pending or confirmed booking and frees its slot when the booking still holds it.
func (h *RejectBookingHandler) Handle(ctx context.Context, cmd RejectBookingCommand) (*dto.BookingActionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Now)
	var booking *domainbooking.Booking
	err := handlersupport.InUnit(ctx, h.UoWFactory, nil, nil, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		booking, err = cmd.load(ctx, unit)
		if err != nil {
			return err
		}
		if err := booking.Reject(cmd.Reason, now); err != nil {
			return err
		}
		if err := unit.Bookings().Save(ctx, booking); err != nil {
			return err
		}
		return unit.Slots().Release(ctx, booking.SlotID, string(booking.ID))
	})
	if err != nil {
		return nil, err
	}
	handlersupport.Publish(ctx, h.Events, booking.PullEvents())
	handlersupport.Logger(h.Logger).Info("booking rejected", "booking_id", booking.ID, "provider_id", booking.ProviderID, "reason", booking.CancelReason)
	return dto.MapBookingAction(booking), nil
}

type CompleteBookingCommand struct{ providerAction }

func NewCompleteBookingCommand(providerID, bookingID string) CompleteBookingCommand {
	return CompleteBookingCommand{providerAction{ProviderID: providerID, BookingID: bookingID}}
}

func (c CompleteBookingCommand) Key() string { return completeBookingKey }

type CompleteBookingHandler struct {
	UoWFactory uow.UoWFactory
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (*dto.BookingActionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Now)
	var booking *domainbooking.Booking
	err := handlersupport.InUnit(ctx, h.UoWFactory, nil, nil, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		booking, err = cmd.load(ctx, unit)
		if err != nil {
			return err
		}
		if err := booking.Complete(now); err != nil {
			return err
		}
		return unit.Bookings().Save(ctx, booking)
	})
	if err != nil {
		return nil, err
	}
	handlersupport.Publish(ctx, h.Events, booking.PullEvents())
	handlersupport.Logger(h.Logger).Info("booking completed", "booking_id", booking.ID, "provider_id", booking.ProviderID)
	return dto.MapBookingAction(booking), nil
}

var (
	_ commands.Handler[ConfirmBookingCommand, *dto.BookingActionResult]  = (*ConfirmBookingHandler)(nil)
	_ commands.Handler[RejectBookingCommand, *dto.BookingActionResult]   = (*RejectBookingHandler)(nil)
	_ commands.Handler[CompleteBookingCommand, *dto.BookingActionResult] = (*CompleteBookingHandler)(nil)
)
