package policies

import (
	"context"
	"errors"
	"sort"

	"tutorbook/internal/domain/shared/timewindow"
)

var ErrLockNotAcquired = errors.New("policies: lock not acquired")

// Unlock releases every key taken by one Lock call.
type Unlock func()

// Locker serializes work on named keys. Implementations lock keys in the given order,
// so callers pass them sorted.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (Unlock, error)
}

// DayKey names the lock guarding one provider's schedule on one date.
func DayKey(providerID string, date timewindow.Date) string {
	return "day:" + providerID + "|" + date.String()
}

// NormalizeKeys sorts and dedupes keys so concurrent lockers acquire them in the same order.
func NormalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
