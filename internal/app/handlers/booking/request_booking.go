package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/dto"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/middleware"
	"tutorbook/internal/app/policies"
	"tutorbook/internal/app/uow"
	domainavailability "tutorbook/internal/domain/availability"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/money"
)

const requestBookingKey = "booking.request"

var (
	ErrPricingUnavailable = errors.New("booking: no price given and no pricing configured")
	ErrForeignCurrency    = errors.New("booking: price is not in the platform currency")
)

type RequestBookingCommand struct {
	CommandID  string
	SlotID     string
	ConsumerID string
	Notes      string
	// Price overrides the rate card. Only the system principal may set it.
	Price           *money.Money
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string             { return requestBookingKey }
func (c RequestBookingCommand) RequiredRole() auth.Role { return auth.RoleConsumer }
func (c RequestBookingCommand) ActorID() string         { return c.ConsumerID }
func (c RequestBookingCommand) IdempotencyKey() string  { return c.IdempotencyKeyV }
func (c RequestBookingCommand) ResultPrototype() any    { return &dto.Booking{} }

func (c RequestBookingCommand) Validate() error {
	if strings.TrimSpace(c.SlotID) == "" {
		return fmt.Errorf("%w: slot id is required", handlersupport.ErrInvalidInput)
	}
	if strings.TrimSpace(c.ConsumerID) == "" {
		return domainbooking.ErrConsumerMissing
	}
	if c.Price != nil && (c.Price.Amount < 0 || len(c.Price.Currency) != 3) {
		return domainbooking.ErrInvalidPrice
	}
	return nil
}

type RequestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.PricingPort
	Events     policies.EventSink
	Logger     *slog.Logger
	Now        func() time.Time
	// Currency every booking price must be in. Empty accepts any.
	Currency string
}

// Handle occupies the slot and creates a pending booking in one unit. The occupy is a
// conditional update in the store, so of several concurrent requests exactly one wins and
// the others get ErrSlotUnavailable.
func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.Booking, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.Price != nil {
		if p, ok := auth.FromContext(ctx); !ok || !p.IsSystem() {
			return nil, fmt.Errorf("%w: price is set from the provider's rate card", auth.ErrForbidden)
		}
	}
	now := handlersupport.Now(h.Now)
	bookingID := domainbooking.BookingID(cmd.CommandID)
	if bookingID == "" {
		bookingID = domainbooking.BookingID(uuid.NewString())
	}

	var booking *domainbooking.Booking
	err := handlersupport.InUnit(ctx, h.UoWFactory, nil, nil, func(ctx context.Context, unit uow.UnitOfWork) error {
		slot, err := unit.Slots().ByID(ctx, domainavailability.SlotID(cmd.SlotID))
		if err != nil {
			return err
		}
		if err := domainbooking.ValidateBookable(*slot, now); err != nil {
			return err
		}
		if slot.Occupied {
			return domainavailability.ErrSlotUnavailable
		}
		price, err := h.quote(ctx, cmd, *slot)
		if err != nil {
			return err
		}
		booking, err = domainbooking.NewBooking(domainbooking.CreateParams{
			ID:         bookingID,
			Slot:       *slot,
			ConsumerID: cmd.ConsumerID,
			Price:      price,
			Notes:      cmd.Notes,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		if _, err := unit.Slots().Occupy(ctx, slot.ID, string(booking.ID)); err != nil {
			return err
		}
		return unit.Bookings().Save(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	handlersupport.Publish(ctx, h.Events, booking.PullEvents())
	handlersupport.Logger(h.Logger).Info("booking requested", "booking_id", booking.ID, "slot_id", booking.SlotID, "provider_id", booking.ProviderID, "consumer_id", booking.ConsumerID, "price", booking.Price.String())
	out := dto.MapBooking(booking)
	return &out, nil
}

func (h *RequestBookingHandler) quote(ctx context.Context, cmd RequestBookingCommand, slot domainavailability.TimeSlot) (money.Money, error) {
	var (
		price money.Money
		err   error
	)
	switch {
	case cmd.Price != nil:
		price, err = money.New(cmd.Price.Amount, cmd.Price.Currency)
	case h.Pricing == nil:
		return money.Money{}, ErrPricingUnavailable
	default:
		price, err = h.Pricing.Quote(ctx, slot.ProviderID, slot.Window())
	}
	if err != nil {
		return money.Money{}, err
	}
	if h.Currency != "" && !strings.EqualFold(price.Currency, h.Currency) {
		return money.Money{}, fmt.Errorf("%w: got %s, want %s", ErrForeignCurrency, price.Currency, strings.ToUpper(h.Currency))
	}
	return price, nil
}

var (
	_ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
	_ middleware.IdempotentCommand                          = RequestBookingCommand{}
)
