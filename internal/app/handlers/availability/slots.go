package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/dto"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/middleware"
	"tutorbook/internal/app/policies"
	"tutorbook/internal/app/uow"
	domainavailability "tutorbook/internal/domain/availability"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/events"
	"tutorbook/internal/domain/shared/timewindow"
)

const (
	addSlotKey    = "availability.slot.add"
	removeSlotKey = "availability.slot.remove"
)

func newSlotID() domainavailability.SlotID {
	return domainavailability.SlotID(uuid.NewString())
}

type AddSlotCommand struct {
	ProviderID string
	Date       timewindow.Date
	Start      timewindow.Clock
	End        timewindow.Clock
}

func (c AddSlotCommand) Key() string             { return addSlotKey }
func (c AddSlotCommand) RequiredRole() auth.Role { return auth.RoleProvider }
func (c AddSlotCommand) ActorID() string         { return c.ProviderID }
func (c AddSlotCommand) LockKeys() []string {
	return []string{policies.DayKey(c.ProviderID, c.Date)}
}

func (c AddSlotCommand) Validate() error {
	if strings.TrimSpace(c.ProviderID) == "" {
		return fmt.Errorf("%w: provider id is required", handlersupport.ErrInvalidInput)
	}
	if c.Date.IsZero() {
		return fmt.Errorf("%w: date is required", handlersupport.ErrInvalidInput)
	}
	if c.Start >= c.End {
		return domainavailability.ErrInvalidRange
	}
	return nil
}

type AddSlotHandler struct {
	UoWFactory uow.UoWFactory
	Locker     policies.Locker
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() domainavailability.SlotID
}

func (h *AddSlotHandler) Handle(ctx context.Context, cmd AddSlotCommand) (dto.Slot, error) {
	if err := cmd.Validate(); err != nil {
		return dto.Slot{}, err
	}
	now := handlersupport.Now(h.Now)
	var (
		slot    domainavailability.TimeSlot
		pending []events.DomainEvent
	)
	err := handlersupport.InUnit(ctx, h.UoWFactory, h.Locker, cmd.LockKeys(), func(ctx context.Context, unit uow.UnitOfWork) error {
		existing, err := unit.Slots().Day(ctx, cmd.ProviderID, cmd.Date)
		if err != nil {
			return err
		}
		day := domainavailability.NewDaySchedule(cmd.ProviderID, cmd.Date, existing)
		slot, err = day.Add(domainavailability.NewSlotParams{
			ID:        h.newID(),
			Start:     cmd.Start,
			End:       cmd.End,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if err := unit.Slots().Insert(ctx, slot); err != nil {
			return err
		}
		pending = day.PullEvents()
		return nil
	})
	if err != nil {
		return dto.Slot{}, err
	}
	handlersupport.Publish(ctx, h.Events, pending)
	handlersupport.Logger(h.Logger).Info("slot published", "slot_id", slot.ID, "provider_id", slot.ProviderID, "date", slot.Date.String(), "start", slot.Start.String(), "end", slot.End.String())
	return dto.MapSlot(slot), nil
}

func (h *AddSlotHandler) newID() domainavailability.SlotID {
	if h.NewID != nil {
		return h.NewID()
	}
	return newSlotID()
}

type RemoveSlotCommand struct {
	ProviderID string
	SlotID     string
}

func (c RemoveSlotCommand) Key() string             { return removeSlotKey }
func (c RemoveSlotCommand) RequiredRole() auth.Role { return auth.RoleProvider }
func (c RemoveSlotCommand) ActorID() string         { return c.ProviderID }

func (c RemoveSlotCommand) Validate() error {
	if strings.TrimSpace(c.ProviderID) == "" || strings.TrimSpace(c.SlotID) == "" {
		return fmt.Errorf("%w: provider id and slot id are required", handlersupport.ErrInvalidInput)
	}
	return nil
}

type RemoveSlotHandler struct {
	UoWFactory uow.UoWFactory
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
}

// Handle deletes a slot unless a pending or confirmed booking holds it. The store delete is
// conditional on the occupancy read here, so a booking that lands in between wins.
func (h *RemoveSlotHandler) Handle(ctx context.Context, cmd RemoveSlotCommand) (*dto.Slot, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Now)
	var removed domainavailability.TimeSlot
	err := handlersupport.InUnit(ctx, h.UoWFactory, nil, nil, func(ctx context.Context, unit uow.UnitOfWork) error {
		slot, err := unit.Slots().ByID(ctx, domainavailability.SlotID(cmd.SlotID))
		if err != nil {
			return err
		}
		if slot.ProviderID != cmd.ProviderID {
			return domainavailability.ErrNotOwned
		}
		if slot.Occupied {
			if err := ensureReleasable(ctx, unit, *slot); err != nil {
				return err
			}
		}
		if err := unit.Slots().DeleteIfUnchanged(ctx, *slot); err != nil {
			if errors.Is(err, domainavailability.ErrSlotChanged) {
				return &domainavailability.OccupiedError{SlotID: slot.ID}
			}
			return err
		}
		removed = *slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	handlersupport.Publish(ctx, h.Events, []events.DomainEvent{domainavailability.SlotRemovedEvent(removed, now)})
	handlersupport.Logger(h.Logger).Info("slot removed", "slot_id", removed.ID, "provider_id", removed.ProviderID, "date", removed.Date.String())
	out := dto.MapSlot(removed)
	return &out, nil
}

// ensureReleasable allows removing an occupied slot only when its booking is gone or terminal.
func ensureReleasable(ctx context.Context, unit uow.UnitOfWork, slot domainavailability.TimeSlot) error {
	if slot.BookingID == "" {
		return &domainavailability.OccupiedError{SlotID: slot.ID}
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(slot.BookingID))
	if errors.Is(err, domainbooking.ErrBookingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !b.Status.Terminal() {
		return &domainavailability.OccupiedError{SlotID: slot.ID, BookingID: slot.BookingID, BookingStatus: string(b.Status)}
	}
	return nil
}

var (
	_ commands.Handler[AddSlotCommand, dto.Slot]     = (*AddSlotHandler)(nil)
	_ commands.Handler[RemoveSlotCommand, *dto.Slot] = (*RemoveSlotHandler)(nil)
	_ middleware.DayScopedCommand                    = AddSlotCommand{}
	_ middleware.SelfValidating                      = RemoveSlotCommand{}
)
