package memory

import (
	"context"
	"sync"

	"tutorbook/internal/app/policies"
)

// PayoutDirectory is a static set of providers whose payout accounts are ready.
type PayoutDirectory struct {
	mu    sync.RWMutex
	ready map[string]bool
}

func NewPayoutDirectory(readyProviders ...string) *PayoutDirectory {
	d := &PayoutDirectory{ready: make(map[string]bool, len(readyProviders))}
	for _, id := range readyProviders {
		d.ready[id] = true
	}
	return d
}

func (d *PayoutDirectory) SetReady(providerID string, ready bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ready[providerID] = ready
}

func (d *PayoutDirectory) IsPayoutReady(ctx context.Context, providerID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready[providerID], nil
}

var _ policies.PayoutPort = (*PayoutDirectory)(nil)
