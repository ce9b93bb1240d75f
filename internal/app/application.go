package app

import (
	"log/slog"
	"time"

	"tutorbook/internal/app/commands"
	availabilityapp "tutorbook/internal/app/handlers/availability"
	bookingapp "tutorbook/internal/app/handlers/booking"
	statsapp "tutorbook/internal/app/handlers/stats"
	"tutorbook/internal/app/middleware"
	"tutorbook/internal/app/policies"
	"tutorbook/internal/app/queries"
	"tutorbook/internal/app/schedule"
	"tutorbook/internal/app/uow"
	domainavailability "tutorbook/internal/domain/availability"
	domainstats "tutorbook/internal/domain/stats"
)

// Deps are the ports the command and query handlers run against.
type Deps struct {
	UoWFactory     uow.UoWFactory
	Locker         policies.Locker
	Events         policies.EventSink
	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration
	Pricing        policies.PricingPort
	Payouts        policies.PayoutPort
	Meetings       policies.MeetingPort
	Scheduler      schedule.Scheduler
	Logger         *slog.Logger
	Now            func() time.Time
	Location       *time.Location
	NewSlotID      func() domainavailability.SlotID
	Currency       string
}

// Application exposes the wrapped buses. Commands pass, outermost first, through
// authorization, validation, idempotency, event publishing, day locks and the transaction.
type Application struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func New(d Deps) *Application {
	if d.Events == nil {
		d.Events = policies.DiscardSink{}
	}
	if d.Scheduler == nil {
		d.Scheduler = schedule.Noop{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}

	commandBus := commands.NewInMemoryBus()
	registerAvailability(commandBus, d)
	registerBooking(commandBus, d)

	queryBus := queries.NewInMemoryBus(d.UoWFactory)
	queries.RegisterHandler(queryBus, availabilityapp.ListSlotsQuery{}.Key(), &availabilityapp.ListSlotsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, bookingapp.ListProviderBookingsQuery{}.Key(), &bookingapp.ListProviderBookingsHandler{UoWFactory: d.UoWFactory, Logger: d.Logger})
	queries.RegisterHandler(queryBus, bookingapp.ListConsumerBookingsQuery{}.Key(), &bookingapp.ListConsumerBookingsHandler{UoWFactory: d.UoWFactory})
	stats := &statsapp.Handler{
		UoWFactory: d.UoWFactory,
		Aggregator: domainstats.Aggregator{Currency: d.Currency},
		Now:        d.Now,
	}
	queries.RegisterHandler(queryBus, statsapp.RollupQuery{}.Key(), stats.RollupHandler())
	queries.RegisterHandler(queryBus, statsapp.SeriesQuery{}.Key(), stats.SeriesHandler())

	cmdMiddleware := []middleware.CommandMiddleware{
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.Validation(middleware.StructValidator{}),
		idempotency(d),
		middleware.PublishEvents(d.Events),
		dayLocks(d.Locker),
		middleware.Transaction(d.UoWFactory, nil),
	}

	return &Application{
		Commands: middleware.ChainCommands(commandBus, cmdMiddleware...),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
			middleware.QueryValidation(middleware.StructValidator{}),
		),
	}
}

func registerAvailability(bus *commands.InMemoryBus, d Deps) {
	commands.RegisterHandler(bus, availabilityapp.AddSlotCommand{}.Key(), &availabilityapp.AddSlotHandler{
		UoWFactory: d.UoWFactory,
		Locker:     d.Locker,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
		NewID:      d.NewSlotID,
	})
	commands.RegisterHandler(bus, availabilityapp.RemoveSlotCommand{}.Key(), &availabilityapp.RemoveSlotHandler{
		UoWFactory: d.UoWFactory,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
	})
	commands.RegisterHandler(bus, availabilityapp.CopyDayCommand{}.Key(), &availabilityapp.CopyDayHandler{
		UoWFactory: d.UoWFactory,
		Locker:     d.Locker,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
		NewID:      d.NewSlotID,
	})
	commands.RegisterHandler(bus, availabilityapp.CopyWeekCommand{}.Key(), &availabilityapp.CopyWeekHandler{
		UoWFactory: d.UoWFactory,
		Locker:     d.Locker,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
		NewID:      d.NewSlotID,
	})
	commands.RegisterHandler(bus, availabilityapp.CloseDayCommand{}.Key(), &availabilityapp.CloseDayHandler{
		UoWFactory: d.UoWFactory,
		Locker:     d.Locker,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
	})
}

func registerBooking(bus *commands.InMemoryBus, d Deps) {
	commands.RegisterHandler(bus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		UoWFactory: d.UoWFactory,
		Pricing:    d.Pricing,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
		Currency:   d.Currency,
	})
	commands.RegisterHandler(bus, bookingapp.ConfirmBookingCommand{}.Key(), &bookingapp.ConfirmBookingHandler{
		UoWFactory: d.UoWFactory,
		Payouts:    d.Payouts,
		Meetings:   d.Meetings,
		Scheduler:  d.Scheduler,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
		Location:   d.Location,
	})
	commands.RegisterHandler(bus, bookingapp.RejectBookingCommand{}.Key(), &bookingapp.RejectBookingHandler{
		UoWFactory: d.UoWFactory,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
	})
	commands.RegisterHandler(bus, bookingapp.CompleteBookingCommand{}.Key(), &bookingapp.CompleteBookingHandler{
		UoWFactory: d.UoWFactory,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
	})
	commands.RegisterHandler(bus, bookingapp.CompleteElapsedCommand{}.Key(), &bookingapp.CompleteElapsedHandler{
		UoWFactory: d.UoWFactory,
		Events:     d.Events,
		Logger:     d.Logger,
		Now:        d.Now,
	})
	commands.RegisterHandler(bus, bookingapp.MarkPaidCommand{}.Key(), &bookingapp.MarkPaidHandler{
		UoWFactory: d.UoWFactory,
		Logger:     d.Logger,
	})
}

func idempotency(d Deps) middleware.CommandMiddleware {
	if d.Idempotency == nil {
		return nil
	}
	return middleware.Idempotency(d.Idempotency, middleware.IdempotencyOptions{TTL: d.IdempotencyTTL, Now: d.Now})
}

func dayLocks(locker policies.Locker) middleware.CommandMiddleware {
	if locker == nil {
		return nil
	}
	return middleware.DayLocks(locker)
}
