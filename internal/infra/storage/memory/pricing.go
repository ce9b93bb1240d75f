package memory

import (
	"context"
	"errors"
	"sync"

	"tutorbook/internal/app/policies"
	"tutorbook/internal/domain/shared/money"
	"tutorbook/internal/domain/shared/timewindow"
)

var ErrNoRate = errors.New("pricing: no rate for provider")

// RateCard prices a window pro rata from an hourly rate per provider.
type RateCard struct {
	mu      sync.RWMutex
	Default money.Money
	rates   map[string]money.Money
}

// NewRateCard returns a card with the given default hourly rate. A zero default means
// providers without an explicit rate cannot be quoted.
func NewRateCard(defaultHourly money.Money) *RateCard {
	return &RateCard{Default: defaultHourly, rates: make(map[string]money.Money)}
}

func (c *RateCard) SetRate(providerID string, hourly money.Money) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[providerID] = hourly
}

func (c *RateCard) Quote(ctx context.Context, providerID string, window timewindow.Window) (money.Money, error) {
	if err := window.Validate(); err != nil {
		return money.Money{}, err
	}
	c.mu.RLock()
	rate, ok := c.rates[providerID]
	c.mu.RUnlock()
	if !ok {
		rate = c.Default
	}
	if rate.Currency == "" {
		return money.Money{}, ErrNoRate
	}
	minutes := int64(window.Duration().Minutes())
	return rate.ProRate(minutes, 60), nil
}

var _ policies.PricingPort = (*RateCard)(nil)
