package booking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/dto"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/queries"
	"tutorbook/internal/app/uow"
	domainbooking "tutorbook/internal/domain/booking"
)

const (
	getBookingKey           = "booking.get"
	listProviderBookingsKey = "booking.list_provider"
	listConsumerBookingsKey = "booking.list_consumer"
	allStatusesFilterValue  = "all"
)

// GetBookingQuery is answered only for the booking's provider or consumer, or the system.
type GetBookingQuery struct {
	ViewerID  string
	BookingID string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	if strings.TrimSpace(q.BookingID) == "" {
		return dto.Booking{}, fmt.Errorf("%w: booking id is required", handlersupport.ErrInvalidInput)
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	if p, ok := auth.FromContext(ctx); ok && p.IsSystem() {
		return dto.MapBooking(b), nil
	}
	if b.ProviderID != q.ViewerID && b.ConsumerID != q.ViewerID {
		return dto.Booking{}, domainbooking.ErrNotOwned
	}
	return dto.MapBooking(b), nil
}

type ListProviderBookingsQuery struct {
	ProviderID string
	// Status filters by lifecycle status; empty or "all" lists every booking.
	Status string
}

func (q ListProviderBookingsQuery) Key() string { return listProviderBookingsKey }

type ListProviderBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListProviderBookingsHandler) Handle(ctx context.Context, q ListProviderBookingsQuery) (dto.BookingCollection, error) {
	providerID := strings.TrimSpace(q.ProviderID)
	if providerID == "" {
		return dto.BookingCollection{}, fmt.Errorf("%w: provider id is required", handlersupport.ErrInvalidInput)
	}
	var (
		filter    domainbooking.Status
		filtering bool
	)
	if raw := strings.TrimSpace(q.Status); raw != "" && !strings.EqualFold(raw, allStatusesFilterValue) {
		status, ok := domainbooking.ParseStatus(raw)
		if !ok {
			return dto.BookingCollection{}, fmt.Errorf("%w: unknown status %q", handlersupport.ErrInvalidInput, raw)
		}
		filter, filtering = status, true
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().ListByProvider(execCtx, providerID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	items := make([]*domainbooking.Booking, 0, len(bookings))
	for _, b := range bookings {
		if filtering && b.Status != filter {
			continue
		}
		items = append(items, b)
	}
	sortByStart(items)
	handlersupport.Logger(h.Logger).Debug("provider bookings listed", "provider_id", providerID, "count", len(items), "status", q.Status)
	return dto.BookingCollection{Items: dto.MapBookings(items)}, nil
}

type ListConsumerBookingsQuery struct {
	ConsumerID string
}

func (q ListConsumerBookingsQuery) Key() string { return listConsumerBookingsKey }

type ListConsumerBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListConsumerBookingsHandler) Handle(ctx context.Context, q ListConsumerBookingsQuery) (dto.BookingCollection, error) {
	consumerID := strings.TrimSpace(q.ConsumerID)
	if consumerID == "" {
		return dto.BookingCollection{}, fmt.Errorf("%w: consumer id is required", handlersupport.ErrInvalidInput)
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().ListByConsumer(execCtx, consumerID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	sortByStart(bookings)
	return dto.BookingCollection{Items: dto.MapBookings(bookings)}, nil
}

func sortByStart(items []*domainbooking.Booking) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Start.Before(items[j].Start)
	})
}

var (
	_ queries.Handler[GetBookingQuery, dto.Booking]                     = (*GetBookingHandler)(nil)
	_ queries.Handler[ListProviderBookingsQuery, dto.BookingCollection] = (*ListProviderBookingsHandler)(nil)
	_ queries.Handler[ListConsumerBookingsQuery, dto.BookingCollection] = (*ListConsumerBookingsHandler)(nil)
)
