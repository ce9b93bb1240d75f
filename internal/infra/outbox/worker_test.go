package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	appoutbox "tutorbook/internal/app/outbox"
	"tutorbook/internal/domain/shared/events"
)

type fakeQueue struct {
	docs   []*EventDocument
	sent   []string
	failed map[string]string
}

func (q *fakeQueue) Claim(context.Context, string) (*EventDocument, error) {
	if len(q.docs) == 0 {
		return nil, nil
	}
	doc := q.docs[0]
	q.docs = q.docs[1:]
	return doc, nil
}

func (q *fakeQueue) MarkSent(_ context.Context, id string) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id string, _ time.Time, errMsg string) error {
	if q.failed == nil {
		q.failed = map[string]string{}
	}
	q.failed[id] = errMsg
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	out []published
	err error
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestTopicFor(t *testing.T) {
	if got := TopicFor("", "booking.confirmed"); got != "booking.events.v1" {
		t.Fatalf("unexpected topic %q", got)
	}
	if got := TopicFor("prod.", "slot.day_closed"); got != "prod.slot.events.v1" {
		t.Fatalf("unexpected topic %q", got)
	}
}

func TestWorker_PublishesCloudEvent(t *testing.T) {
	queue := &fakeQueue{docs: []*EventDocument{{
		ID:        "e1",
		Name:      "booking.confirmed",
		Payload:   []byte(`{"booking_id":"b1"}`),
		Aggregate: "b1",
	}}}
	producer := &fakeProducer{}
	w := &Worker{Queue: queue, Producer: producer, ID: "w1", Source: "tutorbook"}

	w.drain(context.Background())

	if len(queue.sent) != 1 || len(producer.out) != 1 {
		t.Fatalf("expected one publish, got sent=%v out=%d", queue.sent, len(producer.out))
	}
	msg := producer.out[0]
	if msg.topic != "booking.events.v1" || msg.key != "b1" {
		t.Fatalf("unexpected routing %s/%s", msg.topic, msg.key)
	}
	if msg.headers["ce-type"] != "booking.confirmed.v1" {
		t.Fatalf("unexpected headers %v", msg.headers)
	}
	var envelope map[string]any
	if err := json.Unmarshal(msg.payload, &envelope); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if envelope["source"] != "tutorbook" || envelope["subject"] != "b1" {
		t.Fatalf("unexpected envelope %v", envelope)
	}
	data, _ := envelope["data"].(map[string]any)
	if data["booking_id"] != "b1" {
		t.Fatalf("event data must be embedded, got %v", envelope["data"])
	}
}

func TestWorker_FailureSchedulesRetry(t *testing.T) {
	queue := &fakeQueue{docs: []*EventDocument{{ID: "e1", Name: "slot.published", Payload: []byte(`{}`)}}}
	w := &Worker{Queue: queue, Producer: &fakeProducer{err: errors.New("broker down")}, ID: "w1"}

	w.drain(context.Background())

	if len(queue.sent) != 0 || queue.failed["e1"] != "broker down" {
		t.Fatalf("expected e1 to be retried later, got sent=%v failed=%v", queue.sent, queue.failed)
	}
}

func TestWorker_NextRetryUsesBackoff(t *testing.T) {
	w := &Worker{Backoff: []time.Duration{time.Second, time.Minute}}
	before := time.Now()
	if got := w.nextRetry(0); got.Before(before.Add(time.Second)) || got.After(before.Add(time.Minute)) {
		t.Fatalf("first retry out of range: %v", got.Sub(before))
	}
	if got := w.nextRetry(9); got.Before(before.Add(time.Minute)) {
		t.Fatalf("attempts past the table must use the last step, got %v", got.Sub(before))
	}
}

type recordingOutbox struct {
	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func (o *recordingOutbox) Add(_ context.Context, rec appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
	return nil
}

type namedEvent string

func (e namedEvent) EventName() string     { return string(e) }
func (e namedEvent) AggregateID() string   { return "b1" }
func (e namedEvent) OccurredAt() time.Time { return time.Time{} }

func TestDispatcher_FlushesOnShutdown(t *testing.T) {
	box := &recordingOutbox{}
	d := NewDispatcher(box, nil, nil, 4)
	d.Emit(context.Background(), namedEvent("booking.requested"), namedEvent("booking.confirmed"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(box.records) != 2 || box.records[0].Name != "booking.requested" {
		t.Fatalf("queued events must be flushed, got %+v", box.records)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	box := &recordingOutbox{}
	d := NewDispatcher(box, nil, nil, 1)
	d.Emit(context.Background(), namedEvent("a"), namedEvent("b"))
	if len(d.queue) != 1 {
		t.Fatalf("expected the queue to hold one event, got %d", len(d.queue))
	}
}

var _ events.DomainEvent = namedEvent("")
