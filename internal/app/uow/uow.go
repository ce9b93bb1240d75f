package uow

import (
	"context"
	"errors"

	domainavailability "tutorbook/internal/domain/availability"
	domainbooking "tutorbook/internal/domain/booking"
)

var (
	ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")
	// ErrReadOnly is returned by repositories of a read-only unit on any write.
	ErrReadOnly = errors.New("uow: write attempted in a read-only unit")
)

// UnitOfWork groups the slot and booking repositories under one commit. A command that
// occupies a slot and saves its booking either lands both or neither.
type UnitOfWork interface {
	Slots() domainavailability.Repository
	Bookings() domainbooking.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts units. Read-only units serve the query bus and must refuse writes.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that must ride on the context, such as a Mongo session.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type boundKey struct{}

// Bind returns a context carrying unit for downstream repositories and handlers.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return context.WithValue(ctx, boundKey{}, unit)
}

// FromContext returns the unit bound by Bind, if any.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(boundKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}
