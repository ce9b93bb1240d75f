package middleware

import (
	"context"
	"fmt"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/queries"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleRestricted messages name the role allowed to send them.
type RoleRestricted interface {
	RequiredRole() auth.Role
}

// ActorScoped messages act on behalf of one principal id (provider or consumer).
type ActorScoped interface {
	ActorID() string
}

// RoleAuthorizer checks the context principal against the message's role and actor.
// The system principal may act for anyone.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, hasRole := message.(RoleRestricted)
	scoped, hasActor := message.(ActorScoped)
	if !hasRole && !hasActor {
		return nil
	}
	p, ok := auth.FromContext(ctx)
	if !ok {
		return auth.ErrUnauthenticated
	}
	if p.IsSystem() {
		return nil
	}
	if hasRole && p.Role != restricted.RequiredRole() {
		return fmt.Errorf("%w: %s role required", auth.ErrForbidden, restricted.RequiredRole())
	}
	if hasActor && scoped.ActorID() != p.ID {
		return fmt.Errorf("%w: cannot act for %s", auth.ErrForbidden, scoped.ActorID())
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := next.Ask
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
