package meeting

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"tutorbook/internal/app/policies"
	domainbooking "tutorbook/internal/domain/booking"
)

var ErrBaseURLMissing = errors.New("meeting: base url missing")

// LinkGenerator hands out a fresh room link per booking.
type LinkGenerator struct {
	BaseURL string
	NewID   func() string
}

func (g LinkGenerator) Reference(ctx context.Context, booking *domainbooking.Booking) (string, error) {
	base := strings.TrimRight(g.BaseURL, "/")
	if base == "" {
		return "", ErrBaseURLMissing
	}
	newID := g.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return base + "/" + newID(), nil
}

var _ policies.MeetingPort = LinkGenerator{}
