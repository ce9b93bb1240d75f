package policies

import (
	"context"

	domainbooking "tutorbook/internal/domain/booking"
)

type MeetingPort interface {
	Reference(ctx context.Context, booking *domainbooking.Booking) (string, error)
}
