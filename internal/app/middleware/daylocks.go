package middleware

import (
	"context"
	"fmt"

	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/policies"
)

// DayScopedCommand declares the provider days a command mutates.
type DayScopedCommand interface {
	commands.Command
	LockKeys() []string
}

// DayLocks holds the declared day locks until the inner transaction has committed,
// so it must sit outside Transaction in the chain.
func DayLocks(locker policies.Locker) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			scoped, ok := cmd.(DayScopedCommand)
			if !ok {
				return nextFn(ctx, cmd)
			}
			keys := policies.NormalizeKeys(scoped.LockKeys())
			if len(keys) == 0 {
				return nextFn(ctx, cmd)
			}
			unlock, err := locker.Lock(ctx, keys...)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", cmd.Key(), err)
			}
			defer unlock()
			return nextFn(ctx, cmd)
		})
	}
}
