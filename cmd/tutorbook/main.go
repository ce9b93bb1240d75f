package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"tutorbook/internal/app"
	"tutorbook/internal/app/middleware"
	appoutbox "tutorbook/internal/app/outbox"
	"tutorbook/internal/app/policies"
	"tutorbook/internal/app/schedule"
	"tutorbook/internal/app/uow"
	"tutorbook/internal/domain/shared/timewindow"
	"tutorbook/internal/infra/broker/kafka"
	"tutorbook/internal/infra/config"
	ginserver "tutorbook/internal/infra/http/gin"
	"tutorbook/internal/infra/lock/redislock"
	"tutorbook/internal/infra/meeting"
	"tutorbook/internal/infra/obs"
	infraoutbox "tutorbook/internal/infra/outbox"
	"tutorbook/internal/infra/payments"
	"tutorbook/internal/infra/schedule/asynqtask"
	"tutorbook/internal/infra/schedule/sweep"
	"tutorbook/internal/infra/storage/memory"
)

const sweepBatch = 200

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tutorbook stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("tutorbook stopped")
}

// outboxQueue is written by the dispatcher and drained by the relay worker.
type outboxQueue interface {
	appoutbox.Outbox
	infraoutbox.Queue
}

// infrastructure holds what the composition root opened and must close on exit.
type infrastructure struct {
	factory     uow.UoWFactory
	idempotency middleware.IdempotencyStore
	outbox      outboxQueue
	inbox       payments.Inbox
	checks      map[string]obs.Check
	closers     []func(context.Context) error
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	infra, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.close(logger)

	var rdb redis.UniversalClient
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		infra.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		infra.closers = append(infra.closers, func(context.Context) error { return rdb.Close() })
	}

	var locker policies.Locker = memory.NewKeyedLocker()
	if cfg.LockBackend == "redis" {
		locker = redislock.New(rdb, "tutorbook:lock:", cfg.LockTTL)
	}

	payouts, err := buildPayouts(cfg, rdb, logger)
	if err != nil {
		return err
	}

	producer, err := buildProducer(cfg, logger)
	if err != nil {
		return err
	}
	infra.closers = append(infra.closers, producer.close)

	var scheduler schedule.Scheduler = schedule.Noop{}
	var redisOpt asynq.RedisClientOpt
	if cfg.TaskQueue == "asynq" {
		redisOpt = asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		s := asynqtask.NewScheduler(redisOpt)
		infra.closers = append(infra.closers, func(context.Context) error { return s.Close() })
		scheduler = s
	}

	rates := memory.NewRateCard(cfg.DefaultHourlyRate)
	dispatcher := infraoutbox.NewDispatcher(infra.outbox, nil, logger, cfg.EventQueueSize)
	clock := timewindow.SystemClock(cfg.Location)

	application := app.New(app.Deps{
		UoWFactory:     infra.factory,
		Locker:         locker,
		Events:         dispatcher,
		Idempotency:    infra.idempotency,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Pricing:        rates,
		Payouts:        payouts,
		Meetings:       meeting.LinkGenerator{BaseURL: cfg.MeetingBaseURL},
		Scheduler:      scheduler,
		Logger:         logger,
		Now:            clock,
		Location:       cfg.Location,
		Currency:       cfg.DefaultHourlyRate.Currency,
	})

	handlers := ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Commands: application.Commands, Queries: application.Queries, Logger: logger},
		Booking:      ginserver.BookingHandler{Commands: application.Commands, Queries: application.Queries, Logger: logger},
		Stats:        ginserver.StatsHandler{Queries: application.Queries, Logger: logger},
	}
	if cfg.RateLimitEnabled {
		handlers.RateLimiter = ginserver.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: infra.checks}, handlers)

	sweeper, err := sweep.New(cfg.CompletionSweep, application.Commands, sweepBatch, logger)
	if err != nil {
		return fmt.Errorf("completion sweep: %w", err)
	}

	worker := &infraoutbox.Worker{
		Queue:       infra.outbox,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "tutorbook",
		Backoff:     cfg.RetryBackoff,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(dispatcher.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(worker.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(sweeper.Run(gctx)) })
	if cfg.TaskQueue == "asynq" {
		taskWorker := asynqtask.NewWorker(redisOpt, application.Commands, logger)
		g.Go(func() error { return taskWorker.Run(gctx) })
	}
	if cfg.EventBroker == "kafka" {
		intake := &payments.Intake{Bus: application.Commands, Inbox: infra.inbox, Logger: logger}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, kafka.NewConfig("tutorbook-payments"), kafka.PayloadHandlerFunc(intake.Handle), logger)
		if err != nil {
			return fmt.Errorf("payments consumer: %w", err)
		}
		infra.closers = append(infra.closers, func(context.Context) error { return consumer.Close() })
		g.Go(func() error { return ignoreCanceled(consumer.Run(gctx, []string{cfg.KafkaPaymentsTopic})) })
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.Store, "broker", cfg.EventBroker)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
