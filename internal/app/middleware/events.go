package middleware

import (
	"context"

	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/outbox"
	"tutorbook/internal/app/policies"
)

// PublishEvents hands the events collected by a command to sink once it has succeeded.
// Failed commands drop their events.
func PublishEvents(sink policies.EventSink) CommandMiddleware {
	if sink == nil {
		panic("middleware: event sink required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if _, nested := outbox.CollectorFrom(ctx); nested {
				return nextFn(ctx, cmd)
			}
			execCtx, collector := outbox.WithCollector(ctx)
			res, err := nextFn(execCtx, cmd)
			if err != nil {
				collector.Drain()
				return nil, err
			}
			if evs := collector.Drain(); len(evs) > 0 {
				sink.Emit(ctx, evs...)
			}
			return res, nil
		})
	}
}
