package policies

import (
	"context"

	"tutorbook/internal/domain/shared/money"
	"tutorbook/internal/domain/shared/timewindow"
)

// PricingPort quotes the price of a provider's time window when the caller gives none.
type PricingPort interface {
	Quote(ctx context.Context, providerID string, window timewindow.Window) (money.Money, error)
}
