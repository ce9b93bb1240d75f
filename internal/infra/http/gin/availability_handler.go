package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/dto"
	availabilityapp "tutorbook/internal/app/handlers/availability"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/queries"
	"tutorbook/internal/domain/shared/timewindow"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type addSlotRequest struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type copyDayRequest struct {
	TargetDate string `json:"target_date"`
}

func (h AvailabilityHandler) AddSlot(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	var req addSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, fmt.Errorf("%w: %v", handlersupport.ErrInvalidInput, err))
		return
	}
	date, err := timewindow.ParseDate(req.Date)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	start, err := timewindow.ParseClock(req.Start)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	end, err := timewindow.ParseClock(req.End)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := availabilityapp.AddSlotCommand{ProviderID: provider.ID, Date: date, Start: start, End: end}
	slot, err := commands.Dispatch[availabilityapp.AddSlotCommand, dto.Slot](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (h AvailabilityHandler) RemoveSlot(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	cmd := availabilityapp.RemoveSlotCommand{ProviderID: provider.ID, SlotID: strings.TrimSpace(c.Param("id"))}
	if _, err := commands.Dispatch[availabilityapp.RemoveSlotCommand, *dto.Slot](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AvailabilityHandler) CopyDay(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	source, err := timewindow.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	var req copyDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, fmt.Errorf("%w: %v", handlersupport.ErrInvalidInput, err))
		return
	}
	target, err := timewindow.ParseDate(req.TargetDate)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := availabilityapp.CopyDayCommand{ProviderID: provider.ID, SourceDate: source, TargetDate: target}
	created, err := commands.Dispatch[availabilityapp.CopyDayCommand, dto.SlotCollection](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// CopyWeek answers 201 when every day was copied and 207 when some days were skipped.
func (h AvailabilityHandler) CopyWeek(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	weekStart, err := timewindow.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := availabilityapp.CopyWeekCommand{ProviderID: provider.ID, WeekStart: weekStart}
	result, err := commands.Dispatch[availabilityapp.CopyWeekCommand, *dto.CopyWeekResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	status := http.StatusCreated
	if len(result.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

func (h AvailabilityHandler) CloseDay(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	date, err := timewindow.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := availabilityapp.CloseDayCommand{ProviderID: provider.ID, Date: date}
	result, err := commands.Dispatch[availabilityapp.CloseDayCommand, dto.CloseDayResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListSlots is public: consumers browse a provider's calendar before booking. "to" defaults
// to "from".
func (h AvailabilityHandler) ListSlots(c *gin.Context) {
	from, err := timewindow.ParseDate(c.Query("from"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	to := from
	if raw := c.Query("to"); raw != "" {
		if to, err = timewindow.ParseDate(raw); err != nil {
			respondError(c, h.Logger, err)
			return
		}
	}
	q := availabilityapp.ListSlotsQuery{ProviderID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.ListSlotsQuery, dto.SlotCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
