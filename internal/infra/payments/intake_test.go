package payments

import (
	"context"
	"errors"
	"testing"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	bookinghandlers "tutorbook/internal/app/handlers/booking"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/infra/storage/memory"
)

type recordingBus struct {
	sent []bookinghandlers.MarkPaidCommand
	err  error
}

func (b *recordingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	p, ok := auth.FromContext(ctx)
	if !ok || !p.IsSystem() {
		return nil, auth.ErrForbidden
	}
	b.sent = append(b.sent, cmd.(bookinghandlers.MarkPaidCommand))
	return nil, b.err
}

func TestIntake_MarksPaidOnce(t *testing.T) {
	bus := &recordingBus{}
	intake := &Intake{Bus: bus, Inbox: memory.NewInbox()}
	msg := []byte(`{"type":"payment.captured","event_id":"evt-1","booking_id":"b1"}`)

	for i := 0; i < 2; i++ {
		if err := intake.Handle(context.Background(), msg); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if len(bus.sent) != 1 || bus.sent[0].BookingID != "b1" {
		t.Fatalf("expected a single MarkPaid for b1, got %+v", bus.sent)
	}
}

func TestIntake_IgnoresOtherTypes(t *testing.T) {
	bus := &recordingBus{}
	intake := &Intake{Bus: bus, Inbox: memory.NewInbox()}
	if err := intake.Handle(context.Background(), []byte(`{"type":"payment.refunded","event_id":"evt-1","booking_id":"b1"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(bus.sent) != 0 {
		t.Fatal("refunds must not mark bookings paid")
	}
}

func TestIntake_Malformed(t *testing.T) {
	intake := &Intake{Bus: &recordingBus{}, Inbox: memory.NewInbox()}
	for _, payload := range []string{`{not json`, `{"event_id":"","booking_id":"b1"}`, `{"event_id":"evt-1"}`} {
		if err := intake.Handle(context.Background(), []byte(payload)); !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("%s: expected ErrMalformedMessage, got %v", payload, err)
		}
	}
}

func TestIntake_UnknownBookingIsDropped(t *testing.T) {
	bus := &recordingBus{err: domainbooking.ErrBookingNotFound}
	intake := &Intake{Bus: bus, Inbox: memory.NewInbox()}
	if err := intake.Handle(context.Background(), []byte(`{"event_id":"evt-1","booking_id":"gone"}`)); err != nil {
		t.Fatalf("unknown bookings must be acknowledged, got %v", err)
	}
}

func TestIntake_FailureAllowsRedelivery(t *testing.T) {
	bus := &recordingBus{err: errors.New("store down")}
	intake := &Intake{Bus: bus, Inbox: memory.NewInbox()}
	msg := []byte(`{"event_id":"evt-1","booking_id":"b1"}`)

	if err := intake.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected the store failure to surface")
	}
	bus.err = nil
	if err := intake.Handle(context.Background(), msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(bus.sent) != 2 {
		t.Fatalf("redelivery must reach the bus again, got %d sends", len(bus.sent))
	}
}
