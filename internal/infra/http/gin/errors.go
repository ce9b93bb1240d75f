package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/dto"
	bookingapp "tutorbook/internal/app/handlers/booking"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/policies"
	domainavailability "tutorbook/internal/domain/availability"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/timewindow"
	domainstats "tutorbook/internal/domain/stats"
)

type errorBody struct {
	Error         string           `json:"error"`
	Code          string           `json:"code"`
	Conflict      *dto.Conflict    `json:"conflict,omitempty"`
	BookingID     string           `json:"booking_id,omitempty"`
	CurrentStatus string           `json:"current_status,omitempty"`
	Failures      []dto.DayFailure `json:"failures,omitempty"`
}

// respondError maps application errors to HTTP statuses. Unknown errors are logged and
// reported as 500 without detail.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "path", c.FullPath(), "request_id", c.GetString("request_id"), "err", err)
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var overlap *domainavailability.OverlapError
	var occupied *domainavailability.OccupiedError
	var transition *domainbooking.TransitionError
	var week *domainavailability.CopyWeekError

	switch {
	case errors.As(err, &overlap):
		conflict := dto.MapConflict(overlap.Conflict)
		body.Code, body.Conflict = "overlap", &conflict
		return http.StatusConflict, body
	case errors.As(err, &occupied):
		body.Code, body.BookingID, body.CurrentStatus = "slot_occupied", occupied.BookingID, occupied.BookingStatus
		return http.StatusConflict, body
	case errors.As(err, &week):
		body.Code, body.Failures = "week_copy_failed", dto.MapDayFailures(week.Failures)
		return http.StatusConflict, body
	case errors.Is(err, domainbooking.ErrPayoutNotReady):
		body.Code = "payout_not_ready"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &transition):
		body.Code, body.CurrentStatus = "invalid_transition", string(transition.Current)
		return http.StatusConflict, body
	}

	for _, m := range errorTable {
		for _, target := range m.errs {
			if errors.Is(err, target) {
				body.Code = m.code
				return m.status, body
			}
		}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"}
}

var errorTable = []struct {
	status int
	code   string
	errs   []error
}{
	{http.StatusBadRequest, "invalid_input", []error{
		handlersupport.ErrInvalidInput,
		timewindow.ErrInvalidRange,
		timewindow.ErrInvalidDate,
		timewindow.ErrInvalidClock,
		timewindow.ErrUnknownRange,
		domainavailability.ErrInvalidRange,
		domainavailability.ErrSameDay,
		domainavailability.ErrProviderMissing,
		domainbooking.ErrConsumerMissing,
		domainbooking.ErrInvalidPrice,
		domainbooking.ErrSelfBooking,
	}},
	{http.StatusUnauthorized, "unauthenticated", []error{auth.ErrUnauthenticated}},
	{http.StatusForbidden, "forbidden", []error{
		auth.ErrForbidden,
		domainavailability.ErrNotOwned,
		domainbooking.ErrNotOwned,
	}},
	{http.StatusNotFound, "not_found", []error{
		domainavailability.ErrSlotNotFound,
		domainbooking.ErrBookingNotFound,
	}},
	{http.StatusConflict, "conflict", []error{
		domainavailability.ErrOverlap,
		domainavailability.ErrSlotOccupied,
		domainavailability.ErrSlotUnavailable,
		domainavailability.ErrSlotChanged,
		domainbooking.ErrSlotInPast,
		domainbooking.ErrInvalidState,
		domainbooking.ErrNotPending,
		domainbooking.ErrNotConfirmed,
		domainbooking.ErrNotYetElapsed,
		domainbooking.ErrStaleBooking,
		domainstats.ErrMixedCurrencies,
	}},
	{http.StatusUnprocessableEntity, "pricing_unavailable", []error{bookingapp.ErrPricingUnavailable}},
	{http.StatusUnprocessableEntity, "foreign_currency", []error{bookingapp.ErrForeignCurrency}},
	{http.StatusServiceUnavailable, "busy", []error{policies.ErrLockNotAcquired}},
}
