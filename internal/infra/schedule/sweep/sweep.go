package sweep

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/dto"
	bookinghandlers "tutorbook/internal/app/handlers/booking"
)

const DefaultSpec = "@every 1m"

// Sweeper periodically completes confirmed bookings whose end has passed. It is the safety net
// behind the per-booking delayed task.
type Sweeper struct {
	cron   *cron.Cron
	bus    commands.Bus
	logger *slog.Logger
	limit  int
}

func New(spec string, bus commands.Bus, limit int, logger *slog.Logger) (*Sweeper, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		bus:    bus,
		logger: logger,
		limit:  limit,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled and the running sweep returns.
func (s *Sweeper) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

func (s *Sweeper) RunOnce(ctx context.Context) {
	cmd := bookinghandlers.CompleteElapsedCommand{Limit: s.limit}
	res, err := commands.Dispatch[bookinghandlers.CompleteElapsedCommand, *dto.CompletionSweepResult](
		auth.WithPrincipal(ctx, auth.System()), s.bus, cmd)
	if err != nil {
		s.logger.Error("completion sweep failed", "err", err)
		return
	}
	if res == nil {
		return
	}
	if len(res.Completed) > 0 {
		s.logger.Info("completion sweep finished", "completed", len(res.Completed))
	}
	if res.Failed > 0 {
		s.logger.Warn("completion sweep left bookings behind", "failed", res.Failed)
	}
}
