package auth

import (
	"context"
	"errors"
	"strings"
)

type Role string

const (
	RoleProvider Role = "provider"
	RoleConsumer Role = "consumer"
	RoleSystem   Role = "system"
)

var (
	ErrUnauthenticated = errors.New("auth: principal required")
	ErrForbidden       = errors.New("auth: forbidden")
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleProvider, RoleConsumer, RoleSystem:
		return r, true
	}
	return "", false
}

// Principal is the caller identity asserted by the upstream gateway.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsSystem() bool { return p.Role == RoleSystem }

// System is the identity used by background jobs such as the completion sweep.
func System() Principal {
	return Principal{ID: "system", Role: RoleSystem}
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	if !ok || p.ID == "" {
		return Principal{}, false
	}
	return p, true
}
