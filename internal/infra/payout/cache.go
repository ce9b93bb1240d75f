package payout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"tutorbook/internal/app/policies"
)

const defaultCacheTTL = 5 * time.Minute

// Cached remembers only positive answers in Redis, so a provider finishing onboarding is
// picked up on the next confirm. Redis errors fall through to the wrapped port.
type Cached struct {
	Next   policies.PayoutPort
	Redis  redis.UniversalClient
	TTL    time.Duration
	Prefix string
	Logger *slog.Logger
}

func (c *Cached) IsPayoutReady(ctx context.Context, providerID string) (bool, error) {
	key := c.prefix() + providerID
	val, err := c.Redis.Get(ctx, key).Result()
	switch {
	case err == nil && val == "1":
		return true, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger().Warn("payout cache read failed", "provider_id", providerID, "err", err)
	}
	ready, err := c.Next.IsPayoutReady(ctx, providerID)
	if err != nil || !ready {
		return ready, err
	}
	if err := c.Redis.Set(ctx, key, "1", c.ttl()).Err(); err != nil {
		c.logger().Warn("payout cache write failed", "provider_id", providerID, "err", err)
	}
	return true, nil
}

func (c *Cached) ttl() time.Duration {
	if c.TTL <= 0 {
		return defaultCacheTTL
	}
	return c.TTL
}

func (c *Cached) prefix() string {
	if c.Prefix == "" {
		return "tutorbook:payout-ready:"
	}
	return c.Prefix
}

func (c *Cached) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

var _ policies.PayoutPort = (*Cached)(nil)
