package memory

import (
	"context"
	"errors"
	"sync"

	"tutorbook/internal/app/uow"
	domainavailability "tutorbook/internal/domain/availability"
	domainbooking "tutorbook/internal/domain/booking"
)

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	SlotsRepo    *SlotRepository
	BookingsRepo *BookingRepository
}

// Begin starts a unit without isolation. Writes apply immediately and are undone in
// reverse order on rollback. A read-only unit fails every write with uow.ErrReadOnly.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.SlotsRepo == nil || f.BookingsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	u := &Unit{readOnly: opts.ReadOnly}
	u.slots = unitSlots{SlotRepository: f.SlotsRepo, unit: u}
	u.bookings = unitBookings{BookingRepository: f.BookingsRepo, unit: u}
	return u, nil
}

type Unit struct {
	readOnly bool
	mu       sync.Mutex
	undo     []func()
	done     bool
	slots    unitSlots
	bookings unitBookings
}

func (u *Unit) Slots() domainavailability.Repository { return u.slots }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.undo = nil
	u.done = true
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
	u.done = true
	return nil
}

func (u *Unit) journal(undo func(), err error) error {
	if err != nil || undo == nil {
		return err
	}
	u.mu.Lock()
	u.undo = append(u.undo, undo)
	u.mu.Unlock()
	return nil
}

type unitSlots struct {
	*SlotRepository
	unit *Unit
}

func (s unitSlots) Insert(ctx context.Context, slots ...domainavailability.TimeSlot) error {
	if s.unit.readOnly {
		return uow.ErrReadOnly
	}
	return s.unit.journal(s.insert(slots))
}

func (s unitSlots) DeleteIfUnchanged(ctx context.Context, snapshot domainavailability.TimeSlot) error {
	if s.unit.readOnly {
		return uow.ErrReadOnly
	}
	return s.unit.journal(s.deleteIfUnchanged(snapshot))
}

func (s unitSlots) Occupy(ctx context.Context, id domainavailability.SlotID, bookingID string) (*domainavailability.TimeSlot, error) {
	if s.unit.readOnly {
		return nil, uow.ErrReadOnly
	}
	slot, undo, err := s.occupy(id, bookingID)
	if err := s.unit.journal(undo, err); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s unitSlots) Release(ctx context.Context, id domainavailability.SlotID, bookingID string) error {
	if s.unit.readOnly {
		return uow.ErrReadOnly
	}
	return s.unit.journal(s.release(id, bookingID))
}

type unitBookings struct {
	*BookingRepository
	unit *Unit
}

func (b unitBookings) Save(ctx context.Context, booking *domainbooking.Booking) error {
	if b.unit.readOnly {
		return uow.ErrReadOnly
	}
	return b.unit.journal(b.save(booking))
}

func (b unitBookings) MarkPaid(ctx context.Context, id domainbooking.BookingID) error {
	if b.unit.readOnly {
		return uow.ErrReadOnly
	}
	return b.unit.journal(b.markPaid(id))
}

var _ uow.UoWFactory = Factory{}
