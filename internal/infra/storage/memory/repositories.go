package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainavailability "tutorbook/internal/domain/availability"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/events"
	"tutorbook/internal/domain/shared/timewindow"
)

// SlotRepository keeps slots in memory. Every write is a single check-and-set under one mutex.
type SlotRepository struct {
	mu    sync.RWMutex
	items map[domainavailability.SlotID]domainavailability.TimeSlot
}

func NewSlotRepository() *SlotRepository {
	return &SlotRepository{items: make(map[domainavailability.SlotID]domainavailability.TimeSlot)}
}

func (r *SlotRepository) ByID(ctx context.Context, id domainavailability.SlotID) (*domainavailability.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.items[id]
	if !ok {
		return nil, domainavailability.ErrSlotNotFound
	}
	return &slot, nil
}

func (r *SlotRepository) Day(ctx context.Context, providerID string, date timewindow.Date) ([]domainavailability.TimeSlot, error) {
	return r.Range(ctx, providerID, date, date)
}

func (r *SlotRepository) Range(ctx context.Context, providerID string, from, to timewindow.Date) ([]domainavailability.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainavailability.TimeSlot, 0)
	for _, s := range r.items {
		if s.ProviderID != providerID || s.Date.Before(from) || to.Before(s.Date) {
			continue
		}
		out = append(out, s)
	}
	domainavailability.SortSlots(out)
	return out, nil
}

// Insert adds all slots or none. Overlap is checked by the caller under the day lock.
func (r *SlotRepository) Insert(ctx context.Context, slots ...domainavailability.TimeSlot) error {
	_, err := r.insert(slots)
	return err
}

func (r *SlotRepository) insert(slots []domainavailability.TimeSlot) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range slots {
		if _, exists := r.items[s.ID]; exists {
			return nil, fmt.Errorf("memory: duplicate slot id %s", s.ID)
		}
	}
	for _, s := range slots {
		r.items[s.ID] = s
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, s := range slots {
			delete(r.items, s.ID)
		}
	}, nil
}

func (r *SlotRepository) DeleteIfUnchanged(ctx context.Context, snapshot domainavailability.TimeSlot) error {
	_, err := r.deleteIfUnchanged(snapshot)
	return err
}

func (r *SlotRepository) deleteIfUnchanged(snapshot domainavailability.TimeSlot) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[snapshot.ID]
	if !ok {
		return nil, domainavailability.ErrSlotNotFound
	}
	if current.Occupied != snapshot.Occupied || current.BookingID != snapshot.BookingID {
		return nil, domainavailability.ErrSlotChanged
	}
	delete(r.items, snapshot.ID)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, taken := r.items[current.ID]; !taken {
			r.items[current.ID] = current
		}
	}, nil
}

func (r *SlotRepository) Occupy(ctx context.Context, id domainavailability.SlotID, bookingID string) (*domainavailability.TimeSlot, error) {
	slot, _, err := r.occupy(id, bookingID)
	return slot, err
}

func (r *SlotRepository) occupy(id domainavailability.SlotID, bookingID string) (*domainavailability.TimeSlot, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.items[id]
	if !ok {
		return nil, nil, domainavailability.ErrSlotNotFound
	}
	if slot.Occupied {
		return nil, nil, domainavailability.ErrSlotUnavailable
	}
	slot.Occupied = true
	slot.BookingID = bookingID
	r.items[id] = slot
	undo := func() { r.setOccupancy(id, bookingID, false, "") }
	return &slot, undo, nil
}

func (r *SlotRepository) Release(ctx context.Context, id domainavailability.SlotID, bookingID string) error {
	_, err := r.release(id, bookingID)
	return err
}

func (r *SlotRepository) release(id domainavailability.SlotID, bookingID string) (func(), error) {
	if !r.setOccupancy(id, bookingID, false, "") {
		return func() {}, nil
	}
	return func() { r.setOccupancy(id, "", true, bookingID) }, nil
}

// setOccupancy writes the occupancy only while the slot is held by holder ("" meaning free).
func (r *SlotRepository) setOccupancy(id domainavailability.SlotID, holder string, occupied bool, bookingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.items[id]
	if !ok || slot.BookingID != holder || slot.Occupied == (holder == "") {
		return false
	}
	slot.Occupied = occupied
	slot.BookingID = bookingID
	r.items[id] = slot
	return true
}

// BookingRepository stores detached copies so callers never share aggregate state.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	_, err := r.save(booking)
	return err
}

func (r *BookingRepository) save(booking *domainbooking.Booking) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, exists := r.items[booking.ID]
	storedVersion := int64(0)
	if exists {
		storedVersion = prev.Version
	}
	if storedVersion != booking.Version {
		return nil, domainbooking.ErrStaleBooking
	}
	next := cloneBooking(booking)
	next.Version = storedVersion + 1
	if exists {
		next.Paid = prev.Paid
	}
	r.items[booking.ID] = next
	booking.Version = next.Version
	booking.Paid = next.Paid
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		current, ok := r.items[next.ID]
		if !ok || current.Version != next.Version {
			return
		}
		if exists {
			prev.Paid = prev.Paid || current.Paid
			r.items[next.ID] = prev
			return
		}
		delete(r.items, next.ID)
	}, nil
}

func (r *BookingRepository) ListByProvider(ctx context.Context, providerID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.ProviderID == providerID }), nil
}

func (r *BookingRepository) ListByConsumer(ctx context.Context, consumerID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.ConsumerID == consumerID }), nil
}

func (r *BookingRepository) ListElapsed(ctx context.Context, now time.Time, limit int) ([]*domainbooking.Booking, error) {
	out := r.filter(func(b *domainbooking.Booking) bool {
		return b.Status == domainbooking.StatusConfirmed && !b.End.After(now)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].End.Before(out[j].End) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BookingRepository) MarkPaid(ctx context.Context, id domainbooking.BookingID) error {
	_, err := r.markPaid(id)
	return err
}

func (r *BookingRepository) markPaid(id domainbooking.BookingID) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	if b.Paid {
		return func() {}, nil
	}
	b.Paid = true
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.items[id]; ok {
			current.Paid = false
		}
	}, nil
}

func (r *BookingRepository) filter(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.EventRecorder = events.EventRecorder{}
	return &c
}

var (
	_ domainavailability.Repository = (*SlotRepository)(nil)
	_ domainbooking.Repository      = (*BookingRepository)(nil)
)
