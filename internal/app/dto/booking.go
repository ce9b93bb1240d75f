package dto

import (
	"time"

	domainbooking "tutorbook/internal/domain/booking"
)

type Booking struct {
	ID               string    `json:"id"`
	SlotID           string    `json:"slot_id"`
	ProviderID       string    `json:"provider_id"`
	ConsumerID       string    `json:"consumer_id"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Price            MoneyDTO  `json:"price"`
	Paid             bool      `json:"paid"`
	Status           string    `json:"status"`
	MeetingReference string    `json:"meeting_reference,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CancelReason     string    `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	StatusChangedAt  time.Time `json:"status_changed_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

type BookingActionResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type CompletionSweepResult struct {
	Completed []string `json:"completed"`
	Failed    int      `json:"failed"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	return Booking{
		ID:               string(b.ID),
		SlotID:           string(b.SlotID),
		ProviderID:       b.ProviderID,
		ConsumerID:       b.ConsumerID,
		Start:            b.Start,
		End:              b.End,
		Price:            MapMoney(b.Price),
		Paid:             b.Paid,
		Status:           string(b.Status),
		MeetingReference: b.MeetingReference,
		Notes:            b.Notes,
		CancelReason:     b.CancelReason,
		CreatedAt:        b.CreatedAt,
		StatusChangedAt:  b.StatusChangedAt,
	}
}

func MapBookings(items []*domainbooking.Booking) []Booking {
	out := make([]Booking, 0, len(items))
	for _, b := range items {
		out = append(out, MapBooking(b))
	}
	return out
}

func MapBookingAction(b *domainbooking.Booking) *BookingActionResult {
	return &BookingActionResult{BookingID: string(b.ID), Status: string(b.Status)}
}
