package availability

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
	domainavailability "tutorbook/internal/domain/availability"
	"tutorbook/internal/domain/shared/events"
	"tutorbook/internal/domain/shared/timewindow"
)

const (
	copyDayKey  = "availability.day.copy"
	copyWeekKey = "availability.week.copy"
	closeDayKey = "availability.day.close"
)

type CopyDayCommand struct {
	ProviderID string
	SourceDate timewindow.Date
	TargetDate timewindow.Date
}

func (c CopyDayCommand) Key() string             { return copyDayKey }
func (c CopyDayCommand) RequiredRole() auth.Role { return auth.RoleProvider }
func (c CopyDayCommand) ActorID() string         { return c.ProviderID }
func (c CopyDayCommand) LockKeys() []string {
	return []string{policies.DayKey(c.ProviderID, c.SourceDate), policies.DayKey(c.ProviderID, c.TargetDate)}
}

func (c CopyDayCommand) Validate() error {
	if strings.TrimSpace(c.ProviderID) == "" {
		return fmt.Errorf("%w: provider id is required", handlersupport.ErrInvalidInput)
	}
	if c.SourceDate.IsZero() || c.TargetDate.IsZero() {
		return fmt.Errorf("%w: source and target dates are required", handlersupport.ErrInvalidInput)
	}
	if c.SourceDate == c.TargetDate {
		return domainavailability.ErrSameDay
	}
	return nil
}

// dayCopier copies one provider day onto another inside the unit it is given.
type dayCopier struct {
	now   time.Time
	newID func() domainavailability.SlotID
}

func (c dayCopier) copy(ctx context.Context, unit uow.UnitOfWork, providerID string, source, target timewindow.Date) ([]domainavailability.TimeSlot, []events.DomainEvent, error) {
	sourceSlots, err := unit.Slots().Day(ctx, providerID, source)
	if err != nil {
		return nil, nil, err
	}
	targetSlots, err := unit.Slots().Day(ctx, providerID, target)
	if err != nil {
		return nil, nil, err
	}
	src := domainavailability.NewDaySchedule(providerID, source, sourceSlots)
	dst := domainavailability.NewDaySchedule(providerID, target, targetSlots)
	copies, err := dst.CopyFrom(src, c.newID, c.now)
	if err != nil {
		return nil, nil, err
	}
	if len(copies) > 0 {
		if err := unit.Slots().Insert(ctx, copies...); err != nil {
			return nil, nil, err
		}
	}
	return copies, dst.PullEvents(), nil
}

type CopyDayHandler struct {
	UoWFactory uow.UoWFactory
	Locker     policies.Locker
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() domainavailability.SlotID
}

// Handle copies every free slot of the source day. A single conflict at the target aborts
// the whole copy and nothing is written.
func (h *CopyDayHandler) Handle(ctx context.Context, cmd CopyDayCommand) (dto.SlotCollection, error) {
	if err := cmd.Validate(); err != nil {
		return dto.SlotCollection{}, err
	}
	copier := dayCopier{now: handlersupport.Now(h.Now), newID: idGenerator(h.NewID)}
	var (
		created []domainavailability.TimeSlot
		pending []events.DomainEvent
	)
	err := handlersupport.InUnit(ctx, h.UoWFactory, h.Locker, cmd.LockKeys(), func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		created, pending, err = copier.copy(ctx, unit, cmd.ProviderID, cmd.SourceDate, cmd.TargetDate)
		return err
	})
	if err != nil {
		return dto.SlotCollection{}, err
	}
	handlersupport.Publish(ctx, h.Events, pending)
	handlersupport.Logger(h.Logger).Info("day copied", "provider_id", cmd.ProviderID, "source", cmd.SourceDate.String(), "target", cmd.TargetDate.String(), "created", len(created))
	return dto.SlotCollection{Items: dto.MapSlots(created)}, nil
}

type CopyWeekCommand struct {
	ProviderID string
	WeekStart  timewindow.Date
}

func (c CopyWeekCommand) Key() string             { return copyWeekKey }
func (c CopyWeekCommand) RequiredRole() auth.Role { return auth.RoleProvider }
func (c CopyWeekCommand) ActorID() string         { return c.ProviderID }

// ManagesOwnUnit lets every day of the copy commit on its own.
func (c CopyWeekCommand) ManagesOwnUnit() bool { return true }

func (c CopyWeekCommand) Validate() error {
	if strings.TrimSpace(c.ProviderID) == "" {
		return fmt.Errorf("%w: provider id is required", handlersupport.ErrInvalidInput)
	}
	if c.WeekStart.IsZero() {
		return fmt.Errorf("%w: week start is required", handlersupport.ErrInvalidInput)
	}
	return nil
}

type CopyWeekHandler struct {
	UoWFactory uow.UoWFactory
	Locker     policies.Locker
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() domainavailability.SlotID
}

// Handle copies the seven days from WeekStart onto the following week. Each day is
// all-or-nothing; a failing day is reported and the remaining days are still attempted.
// Cancellation stops the loop and reports the days not reached as failures.
// An error is returned only when days failed and nothing was created.
func (h *CopyWeekHandler) Handle(ctx context.Context, cmd CopyWeekCommand) (*dto.CopyWeekResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	copier := dayCopier{now: handlersupport.Now(h.Now), newID: idGenerator(h.NewID)}
	logger := handlersupport.Logger(h.Logger)
	var (
		created  []domainavailability.TimeSlot
		failures []domainavailability.DayFailure
	)
	pairs := domainavailability.WeekPairs(cmd.WeekStart)
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			// copied days stay committed
			for _, rest := range pairs[i:] {
				failures = append(failures, domainavailability.DayFailure{DayPair: rest, Err: err})
			}
			logger.Warn("week copy interrupted", "provider_id", cmd.ProviderID, "source", pair.Source.String(), "err", err)
			break
		}
		keys := []string{policies.DayKey(cmd.ProviderID, pair.Source), policies.DayKey(cmd.ProviderID, pair.Target)}
		var (
			dayCopies []domainavailability.TimeSlot
			pending   []events.DomainEvent
		)
		err := handlersupport.InUnit(ctx, h.UoWFactory, h.Locker, keys, func(ctx context.Context, unit uow.UnitOfWork) error {
			var err error
			dayCopies, pending, err = copier.copy(ctx, unit, cmd.ProviderID, pair.Source, pair.Target)
			return err
		})
		if err != nil {
			logger.Warn("week copy day skipped", "provider_id", cmd.ProviderID, "source", pair.Source.String(), "target", pair.Target.String(), "err", err)
			failures = append(failures, domainavailability.DayFailure{DayPair: pair, Err: err})
			continue
		}
		created = append(created, dayCopies...)
		handlersupport.Publish(ctx, h.Events, pending)
	}
	logger.Info("week copied", "provider_id", cmd.ProviderID, "week_start", cmd.WeekStart.String(), "created", len(created), "failed_days", len(failures))
	if len(failures) > 0 && len(created) == 0 {
		return nil, &domainavailability.CopyWeekError{Failures: failures}
	}
	return &dto.CopyWeekResult{Created: dto.MapSlots(created), Failures: dto.MapDayFailures(failures)}, nil
}

type CloseDayCommand struct {
	ProviderID string
	Date       timewindow.Date
}

func (c CloseDayCommand) Key() string             { return closeDayKey }
func (c CloseDayCommand) RequiredRole() auth.Role { return auth.RoleProvider }
func (c CloseDayCommand) ActorID() string         { return c.ProviderID }
func (c CloseDayCommand) LockKeys() []string {
	return []string{policies.DayKey(c.ProviderID, c.Date)}
}

func (c CloseDayCommand) Validate() error {
	if strings.TrimSpace(c.ProviderID) == "" || c.Date.IsZero() {
		return fmt.Errorf("%w: provider id and date are required", handlersupport.ErrInvalidInput)
	}
	return nil
}

type CloseDayHandler struct {
	UoWFactory uow.UoWFactory
	Locker     policies.Locker
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
}

// Handle withdraws every free slot of the day. A slot booked while closing counts as not closed.
func (h *CloseDayHandler) Handle(ctx context.Context, cmd CloseDayCommand) (dto.CloseDayResult, error) {
	if err := cmd.Validate(); err != nil {
		return dto.CloseDayResult{}, err
	}
	now := handlersupport.Now(h.Now)
	var (
		closed, kept int
		pending      []events.DomainEvent
	)
	err := handlersupport.InUnit(ctx, h.UoWFactory, h.Locker, cmd.LockKeys(), func(ctx context.Context, unit uow.UnitOfWork) error {
		existing, err := unit.Slots().Day(ctx, cmd.ProviderID, cmd.Date)
		if err != nil {
			return err
		}
		day := domainavailability.NewDaySchedule(cmd.ProviderID, cmd.Date, existing)
		removed, occupied := day.Close(now)
		closed, kept = 0, occupied
		for _, s := range removed {
			if err := unit.Slots().DeleteIfUnchanged(ctx, s); err != nil {
				if errors.Is(err, domainavailability.ErrSlotChanged) || errors.Is(err, domainavailability.ErrSlotNotFound) {
					kept++
					continue
				}
				return err
			}
			closed++
		}
		pending = day.PullEvents()
		if closed != len(removed) {
			pending = []events.DomainEvent{domainavailability.DayClosedEvent(cmd.ProviderID, cmd.Date, closed, kept, now)}
		}
		return nil
	})
	if err != nil {
		return dto.CloseDayResult{}, err
	}
	handlersupport.Publish(ctx, h.Events, pending)
	handlersupport.Logger(h.Logger).Info("day closed", "provider_id", cmd.ProviderID, "date", cmd.Date.String(), "closed", closed, "could_not_close", kept)
	return dto.CloseDayResult{Date: cmd.Date.String(), Closed: closed, CouldNotClose: kept}, nil
}

func idGenerator(fn func() domainavailability.SlotID) func() domainavailability.SlotID {
	if fn != nil {
		return fn
	}
	return newSlotID
}

var (
	_ commands.Handler[CopyDayCommand, dto.SlotCollection]   = (*CopyDayHandler)(nil)
	_ commands.Handler[CopyWeekCommand, *dto.CopyWeekResult] = (*CopyWeekHandler)(nil)
	_ commands.Handler[CloseDayCommand, dto.CloseDayResult]  = (*CloseDayHandler)(nil)
	_ middleware.SelfManagedCommand                          = CopyWeekCommand{}
	_ middleware.DayScopedCommand                            = CloseDayCommand{}
)
