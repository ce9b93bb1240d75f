package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"tutorbook/internal/app/policies"
	"tutorbook/internal/infra/broker/kafka"
	"tutorbook/internal/infra/broker/logbroker"
	"tutorbook/internal/infra/broker/rabbitmq"
	"tutorbook/internal/infra/config"
	mongodb "tutorbook/internal/infra/db/mongo"
	"tutorbook/internal/infra/inbox"
	"tutorbook/internal/infra/obs"
	infraoutbox "tutorbook/internal/infra/outbox"
	"tutorbook/internal/infra/payout"
	"tutorbook/internal/infra/storage/memory"
)

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{checks: map[string]obs.Check{}}
	if cfg.Store != "mongo" {
		infra.factory = memory.Factory{SlotsRepo: memory.NewSlotRepository(), BookingsRepo: memory.NewBookingRepository()}
		infra.idempotency = memory.NewIdempotencyStore()
		infra.outbox = memory.NewOutboxQueue()
		infra.inbox = memory.NewInbox()
		logger.Info("using in-memory store")
		return infra, nil
	}

	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	infra.closers = append(infra.closers, client.Close)
	infra.checks["mongo"] = client.Ping

	if err := mongodb.EnsureIndexes(ctx, client.DB); err != nil {
		infra.close(logger)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	idem, err := mongodb.NewIdempotencyStore(ctx, client.DB)
	if err != nil {
		infra.close(logger)
		return nil, fmt.Errorf("idempotency store: %w", err)
	}
	box, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		infra.close(logger)
		return nil, fmt.Errorf("outbox store: %w", err)
	}
	in, err := inbox.NewStore(ctx, client.DB, cfg.KafkaGroupID)
	if err != nil {
		infra.close(logger)
		return nil, fmt.Errorf("inbox store: %w", err)
	}
	infra.factory = mongodb.NewFactory(client.DB)
	infra.idempotency = idem
	infra.outbox = box
	infra.inbox = in
	logger.Info("using mongo store", "database", cfg.MongoDB)
	return infra, nil
}

// close runs the closers in reverse order of opening.
func (i *infrastructure) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	i.closers = nil
}

func buildPayouts(cfg config.Config, rdb redis.UniversalClient, logger *slog.Logger) (policies.PayoutPort, error) {
	var port policies.PayoutPort
	switch cfg.PayoutMode {
	case "stripe":
		connect, err := payout.NewStripeConnect(cfg.StripeSecretKey, cfg.StripeAccounts, logger)
		if err != nil {
			return nil, fmt.Errorf("stripe payouts: %w", err)
		}
		port = connect
	default:
		port = memory.NewPayoutDirectory(cfg.PayoutReadyProviders...)
	}
	if cfg.PayoutCacheTTL > 0 && rdb != nil {
		port = &payout.Cached{Next: port, Redis: rdb, TTL: cfg.PayoutCacheTTL, Prefix: "tutorbook:payout:", Logger: logger}
	}
	return port, nil
}

// producer is the broker the outbox worker relays to.
type producer struct {
	infraoutbox.Producer
	close func(context.Context) error
}

func buildProducer(cfg config.Config, logger *slog.Logger) (producer, error) {
	switch cfg.EventBroker {
	case "kafka":
		p, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("tutorbook-outbox"))
		if err != nil {
			return producer{}, fmt.Errorf("kafka producer: %w", err)
		}
		return producer{Producer: p, close: func(context.Context) error { return p.Close() }}, nil
	case "rabbitmq":
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return producer{}, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		return producer{Producer: p, close: func(context.Context) error { return p.Close() }}, nil
	default:
		return producer{Producer: logbroker.Producer{Logger: logger}, close: func(context.Context) error { return nil }}, nil
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
