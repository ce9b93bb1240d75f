package outbox

import (
	"context"
	"sync"

	"tutorbook/internal/domain/shared/events"
)

// Collector buffers events raised while a command runs so they can be emitted after commit.
type Collector struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (c *Collector) Add(evs ...events.DomainEvent) {
	c.mu.Lock()
	c.events = append(c.events, evs...)
	c.mu.Unlock()
}

// Drain returns the buffered events and empties the collector.
func (c *Collector) Drain() []events.DomainEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

type collectorKey struct{}

func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

func CollectorFrom(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(collectorKey{}).(*Collector)
	return c, ok
}
