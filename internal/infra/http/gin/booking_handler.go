package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/dto"
	bookingapp "tutorbook/internal/app/handlers/booking"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type requestBookingRequest struct {
	SlotID string `json:"slot_id"`
	Notes  string `json:"notes"`
}

type rejectBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Request(c *gin.Context) {
	consumer, ok := requireRole(c, auth.RoleConsumer)
	if !ok {
		return
	}
	var req requestBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, fmt.Errorf("%w: %v", handlersupport.ErrInvalidInput, err))
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		CommandID:       uuid.NewString(),
		SlotID:          strings.TrimSpace(req.SlotID),
		ConsumerID:      consumer.ID,
		Notes:           strings.TrimSpace(req.Notes),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	viewer, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := bookingapp.GetBookingQuery{ViewerID: viewer.ID, BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	consumer, ok := requireRole(c, auth.RoleConsumer)
	if !ok {
		return
	}
	q := bookingapp.ListConsumerBookingsQuery{ConsumerID: consumer.ID}
	result, err := queries.Ask[bookingapp.ListConsumerBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListProvider(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	q := bookingapp.ListProviderBookingsQuery{ProviderID: provider.ID, Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListProviderBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	cmd := bookingapp.NewConfirmBookingCommand(provider.ID, strings.TrimSpace(c.Param("id")))
	h.respondAction(c, func() (*dto.BookingActionResult, error) {
		return commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Reject(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	var req rejectBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.Logger, fmt.Errorf("%w: %v", handlersupport.ErrInvalidInput, err))
			return
		}
	}
	cmd := bookingapp.NewRejectBookingCommand(provider.ID, strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Reason))
	h.respondAction(c, func() (*dto.BookingActionResult, error) {
		return commands.Dispatch[bookingapp.RejectBookingCommand, *dto.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Complete(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	cmd := bookingapp.NewCompleteBookingCommand(provider.ID, strings.TrimSpace(c.Param("id")))
	h.respondAction(c, func() (*dto.BookingActionResult, error) {
		return commands.Dispatch[bookingapp.CompleteBookingCommand, *dto.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) respondAction(c *gin.Context, run func() (*dto.BookingActionResult, error)) {
	result, err := run()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
