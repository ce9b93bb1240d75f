// Package queries routes read requests. The in-memory bus can run every query inside a
// read-only unit of work so a handler cannot write even by accident.
package queries

import (
	"context"
	"errors"
	"fmt"

	"tutorbook/internal/app/uow"
)

type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

// HandlerFunc lets a method value serve as a Handler.
type HandlerFunc[Q Query, R any] func(ctx context.Context, query Q) (R, error)

func (f HandlerFunc[Q, R]) Handle(ctx context.Context, query Q) (R, error) {
	return f(ctx, query)
}

type Bus interface {
	Ask(ctx context.Context, query Query) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("queries: handler not found")
	ErrInvalidQuery    = errors.New("queries: invalid query for handler")
	ErrResultType      = errors.New("queries: result type mismatch")
	ErrNilBus          = errors.New("queries: nil bus")
)

// Ask runs query through bus and asserts the result to R.
func Ask[Q Query, R any](ctx context.Context, bus Bus, query Q) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Ask(ctx, query)
	if err != nil || res == nil {
		return zero, err
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, query.Key(), res, zero)
	}
	return value, nil
}

type route func(ctx context.Context, q Query) (any, error)

type InMemoryBus struct {
	routes map[string]route
	units  uow.UoWFactory
}

// NewInMemoryBus returns a bus that opens a read-only unit per query when units is set.
// A unit already bound to the context is reused.
func NewInMemoryBus(units uow.UoWFactory) *InMemoryBus {
	return &InMemoryBus{routes: make(map[string]route), units: units}
}

func (b *InMemoryBus) Ask(ctx context.Context, query Query) (any, error) {
	r, ok := b.routes[query.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, query.Key())
	}
	if _, bound := uow.FromContext(ctx); bound || b.units == nil {
		return r(ctx, query)
	}
	unit, err := b.units.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	defer func() { _ = unit.Rollback(execCtx) }()
	return r(execCtx, query)
}

func RegisterHandler[Q Query, R any](bus *InMemoryBus, key string, handler Handler[Q, R]) {
	switch {
	case bus == nil:
		panic("queries: nil bus")
	case key == "":
		panic("queries: empty key registration")
	}
	if _, dup := bus.routes[key]; dup {
		panic(fmt.Sprintf("queries: duplicate handler for %q", key))
	}
	bus.routes[key] = func(ctx context.Context, raw Query) (any, error) {
		q, ok := raw.(Q)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrInvalidQuery, key, raw)
		}
		return handler.Handle(ctx, q)
	}
}
