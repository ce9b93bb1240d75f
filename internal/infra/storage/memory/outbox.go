package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	appoutbox "tutorbook/internal/app/outbox"
	infraoutbox "tutorbook/internal/infra/outbox"
)

var ErrOutboxEntryNotFound = errors.New("memory: outbox entry not found")

// OutboxQueue is the single-process outbox used with the memory store.
type OutboxQueue struct {
	mu      sync.Mutex
	entries map[string]*infraoutbox.EventDocument
	order   []string
	now     func() time.Time
}

func NewOutboxQueue() *OutboxQueue {
	return &OutboxQueue{
		entries: make(map[string]*infraoutbox.EventDocument),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (q *OutboxQueue) Add(ctx context.Context, record appoutbox.EventRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.entries[record.ID]; exists {
		return nil
	}
	now := q.now()
	q.entries[record.ID] = &infraoutbox.EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     append([]byte(nil), record.Payload...),
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     cloneHeaders(record.Headers),
		State:       infraoutbox.StateNew,
		NextAttempt: now,
	}
	q.order = append(q.order, record.ID)
	return nil
}

// Claim hands out the oldest due entry, in insertion order.
func (q *OutboxQueue) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	due := make([]*infraoutbox.EventDocument, 0)
	for _, id := range q.order {
		doc := q.entries[id]
		switch doc.State {
		case infraoutbox.StateNew, infraoutbox.StateFailed:
		case infraoutbox.StateClaimed:
			if doc.ClaimedAt.Add(time.Minute).After(now) {
				continue
			}
		default:
			continue
		}
		if doc.NextAttempt.After(now) {
			continue
		}
		due = append(due, doc)
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].NextAttempt.Before(due[j].NextAttempt) })
	doc := due[0]
	doc.State = infraoutbox.StateClaimed
	doc.ClaimedBy = workerID
	doc.ClaimedAt = now
	out := *doc
	out.Headers = cloneHeaders(doc.Headers)
	return &out, nil
}

func (q *OutboxQueue) MarkSent(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	doc, ok := q.entries[id]
	if !ok {
		return ErrOutboxEntryNotFound
	}
	doc.State = infraoutbox.StateSent
	doc.SentAt = q.now()
	doc.Attempts++
	q.compact()
	return nil
}

func (q *OutboxQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	doc, ok := q.entries[id]
	if !ok {
		return ErrOutboxEntryNotFound
	}
	doc.State = infraoutbox.StateFailed
	doc.Attempts++
	doc.NextAttempt = next
	doc.LastError = errMsg
	return nil
}

// Pending counts entries not yet sent.
func (q *OutboxQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, doc := range q.entries {
		if doc.State != infraoutbox.StateSent {
			n++
		}
	}
	return n
}

// compact drops sent entries so the queue does not grow without bound.
func (q *OutboxQueue) compact() {
	kept := q.order[:0]
	for _, id := range q.order {
		if q.entries[id].State == infraoutbox.StateSent {
			delete(q.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

var (
	_ appoutbox.Outbox  = (*OutboxQueue)(nil)
	_ infraoutbox.Queue = (*OutboxQueue)(nil)
)
