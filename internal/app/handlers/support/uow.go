package support

import (
	"context"

	"tutorbook/internal/app/outbox"
	"tutorbook/internal/app/policies"
	"tutorbook/internal/app/uow"
	"tutorbook/internal/domain/shared/events"
)

// BeginReadOnlyUnit reuses the unit bound to ctx or opens a read-only one. cleanup is nil when reused.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// InUnit runs fn inside the unit bound to ctx. Without one it takes the given locks, opens a
// unit, commits it when fn succeeds and releases the locks after commit.
func InUnit(ctx context.Context, factory uow.UoWFactory, locker policies.Locker, keys []string, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	if unit, ok := uow.FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return uow.ErrUnitOfWorkMissing
	}
	if locker != nil {
		if keys = policies.NormalizeKeys(keys); len(keys) > 0 {
			unlock, err := locker.Lock(ctx, keys...)
			if err != nil {
				return err
			}
			defer unlock()
		}
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	execCtx := uow.Bind(ctx, unit)
	if err := fn(execCtx, unit); err != nil {
		_ = unit.Rollback(execCtx)
		return err
	}
	return unit.Commit(execCtx)
}

// Publish defers evs to the command pipeline when it collects events, otherwise emits them now.
// Call it only after the unit that produced evs has committed.
func Publish(ctx context.Context, sink policies.EventSink, evs []events.DomainEvent) {
	if len(evs) == 0 {
		return
	}
	if c, ok := outbox.CollectorFrom(ctx); ok {
		c.Add(evs...)
		return
	}
	if sink != nil {
		sink.Emit(ctx, evs...)
	}
}
