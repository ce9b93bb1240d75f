package redislock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tutorbook/internal/app/policies"
)

const (
	defaultTTL   = 30 * time.Second
	defaultRetry = 25 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a Redis lock shared by every instance. Each key is SET NX PX with a random
// token and released only by the holder of that token.
type Locker struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func New(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if prefix == "" {
		prefix = "tutorbook:lock:"
	}
	return &Locker{rdb: rdb, prefix: prefix, ttl: ttl, retry: defaultRetry}
}

// Lock acquires keys in order, polling until ctx ends.
func (l *Locker) Lock(ctx context.Context, keys ...string) (policies.Unlock, error) {
	keys = policies.NormalizeKeys(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = releaseScript.Run(releaseCtx, l.rdb, []string{held[i]}, token).Err()
		}
	}
	for _, key := range keys {
		full := l.prefix + key
		if err := l.acquire(ctx, full, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, full)
	}
	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return errors.Join(policies.ErrLockNotAcquired, ctx.Err())
			}
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Join(policies.ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

var _ policies.Locker = (*Locker)(nil)
