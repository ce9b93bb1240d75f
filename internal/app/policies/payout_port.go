package policies

import "context"

// PayoutPort answers whether a provider can legally receive paid funds.
type PayoutPort interface {
	IsPayoutReady(ctx context.Context, providerID string) (bool, error)
}

type PayoutFunc func(ctx context.Context, providerID string) (bool, error)

func (f PayoutFunc) IsPayoutReady(ctx context.Context, providerID string) (bool, error) {
	return f(ctx, providerID)
}
