package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/dto"
	statsapp "tutorbook/internal/app/handlers/stats"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/queries"
)

type StatsHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h StatsHandler) Rollup(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	q := statsapp.RollupQuery{ProviderID: provider.ID, Window: c.Query("window")}
	result, err := queries.Ask[statsapp.RollupQuery, dto.Rollup](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h StatsHandler) Series(c *gin.Context) {
	provider, ok := requireRole(c, auth.RoleProvider)
	if !ok {
		return
	}
	zeroFill := false
	if raw := c.Query("zero_fill"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, h.Logger, fmt.Errorf("%w: zero_fill must be a boolean", handlersupport.ErrInvalidInput))
			return
		}
		zeroFill = v
	}
	q := statsapp.SeriesQuery{ProviderID: provider.ID, Window: c.Query("window"), ZeroFill: zeroFill}
	result, err := queries.Ask[statsapp.SeriesQuery, dto.Series](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
