package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	bookinghandlers "tutorbook/internal/app/handlers/booking"
	domainbooking "tutorbook/internal/domain/booking"
)

const EventCaptured = "payment.captured"

var ErrMalformedMessage = errors.New("payments: malformed message")

// Inbox deduplicates deliveries by event id.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Message is the payload published by the payment service. Type may be empty when the topic
// only carries captures.
type Message struct {
	Type      string `json:"type"`
	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
}

// Intake turns captured payments into MarkPaid commands. It is the only writer of Paid.
type Intake struct {
	Bus    commands.Bus
	Inbox  Inbox
	Logger *slog.Logger
}

func (i *Intake) Handle(ctx context.Context, payload []byte) error {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Type != "" && msg.Type != EventCaptured {
		return nil
	}
	if strings.TrimSpace(msg.EventID) == "" || strings.TrimSpace(msg.BookingID) == "" {
		return fmt.Errorf("%w: event_id and booking_id are required", ErrMalformedMessage)
	}
	logger := i.logger().With("event_id", msg.EventID, "booking_id", msg.BookingID)

	seen, err := i.Inbox.Seen(ctx, msg.EventID)
	if err != nil {
		return err
	}
	if seen {
		logger.Debug("duplicate payment event dropped")
		return nil
	}

	cmd := bookinghandlers.MarkPaidCommand{BookingID: msg.BookingID, EventID: msg.EventID}
	_, err = i.Bus.Dispatch(auth.WithPrincipal(ctx, auth.System()), cmd)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domainbooking.ErrBookingNotFound):
		logger.Warn("payment for unknown booking")
		return nil
	default:
		if forgetErr := i.Inbox.Forget(ctx, msg.EventID); forgetErr != nil {
			logger.Error("inbox mark not cleared", "err", forgetErr)
		}
		return err
	}
}

func (i *Intake) logger() *slog.Logger {
	if i.Logger == nil {
		return slog.Default()
	}
	return i.Logger
}
