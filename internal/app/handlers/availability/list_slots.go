package availability

import (
	"context"
	"fmt"
	"strings"

	"tutorbook/internal/app/dto"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/queries"
	"tutorbook/internal/app/uow"
	domainavailability "tutorbook/internal/domain/availability"
	"tutorbook/internal/domain/shared/timewindow"
)

const (
	listSlotsKey = "availability.slots.list"
	maxListDays  = 62
)

// ListSlotsQuery returns raw slots of one provider between From and To inclusive.
// A zero To lists the From day only.
type ListSlotsQuery struct {
	ProviderID string
	From       timewindow.Date
	To         timewindow.Date
}

func (q ListSlotsQuery) Key() string { return listSlotsKey }

func (q ListSlotsQuery) Validate() error {
	if strings.TrimSpace(q.ProviderID) == "" || q.From.IsZero() {
		return fmt.Errorf("%w: provider id and from date are required", handlersupport.ErrInvalidInput)
	}
	to := q.to()
	if to.Before(q.From) {
		return fmt.Errorf("%w: to must not be before from", handlersupport.ErrInvalidInput)
	}
	if q.From.AddDays(maxListDays).Before(to) {
		return fmt.Errorf("%w: range exceeds %d days", handlersupport.ErrInvalidInput, maxListDays)
	}
	return nil
}

func (q ListSlotsQuery) to() timewindow.Date {
	if q.To.IsZero() {
		return q.From
	}
	return q.To
}

type ListSlotsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListSlotsHandler) Handle(ctx context.Context, q ListSlotsQuery) (dto.SlotCollection, error) {
	if err := q.Validate(); err != nil {
		return dto.SlotCollection{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SlotCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	var slots []domainavailability.TimeSlot
	if to := q.to(); to == q.From {
		slots, err = unit.Slots().Day(execCtx, q.ProviderID, q.From)
	} else {
		slots, err = unit.Slots().Range(execCtx, q.ProviderID, q.From, to)
	}
	if err != nil {
		return dto.SlotCollection{}, err
	}
	domainavailability.SortSlots(slots)
	return dto.SlotCollection{Items: dto.MapSlots(slots)}, nil
}

var _ queries.Handler[ListSlotsQuery, dto.SlotCollection] = (*ListSlotsHandler)(nil)
