package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/dto"
	handlersupport "tutorbook/internal/app/handlers/support"
	"tutorbook/internal/app/queries"
	"tutorbook/internal/app/uow"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/timewindow"
	domainstats "tutorbook/internal/domain/stats"
)

const (
	rollupKey = "stats.rollup"
	seriesKey = "stats.series"
)

type RollupQuery struct {
	ProviderID string
	Window     string
}

func (q RollupQuery) Key() string             { return rollupKey }
func (q RollupQuery) RequiredRole() auth.Role { return auth.RoleProvider }
func (q RollupQuery) ActorID() string         { return q.ProviderID }

type SeriesQuery struct {
	ProviderID string
	Window     string
	ZeroFill   bool
}

func (q SeriesQuery) Key() string             { return seriesKey }
func (q SeriesQuery) RequiredRole() auth.Role { return auth.RoleProvider }
func (q SeriesQuery) ActorID() string         { return q.ProviderID }

// Handler answers both dashboard queries from a fresh read of the provider's bookings.
type Handler struct {
	UoWFactory uow.UoWFactory
	Aggregator domainstats.Aggregator
	Now        func() time.Time
}

func (h *Handler) Rollup(ctx context.Context, q RollupQuery) (dto.Rollup, error) {
	window, bookings, err := h.load(ctx, q.ProviderID, q.Window)
	if err != nil {
		return dto.Rollup{}, err
	}
	r, err := h.Aggregator.Rollup(q.ProviderID, window, bookings, handlersupport.Now(h.Now))
	if err != nil {
		return dto.Rollup{}, err
	}
	return dto.MapRollup(r), nil
}

func (h *Handler) Series(ctx context.Context, q SeriesQuery) (dto.Series, error) {
	window, bookings, err := h.load(ctx, q.ProviderID, q.Window)
	if err != nil {
		return dto.Series{}, err
	}
	points, err := h.Aggregator.Series(q.ProviderID, window, bookings, handlersupport.Now(h.Now), q.ZeroFill)
	if err != nil {
		return dto.Series{}, err
	}
	return dto.Series{ProviderID: q.ProviderID, Window: string(window), Points: dto.MapSeries(points)}, nil
}

func (h *Handler) load(ctx context.Context, providerID, rawWindow string) (timewindow.Range, []*domainbooking.Booking, error) {
	if strings.TrimSpace(providerID) == "" {
		return "", nil, fmt.Errorf("%w: provider id is required", handlersupport.ErrInvalidInput)
	}
	window, err := timewindow.ParseRange(rawWindow)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", handlersupport.ErrInvalidInput, err)
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return "", nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().ListByProvider(execCtx, providerID)
	if err != nil {
		return "", nil, err
	}
	return window, bookings, nil
}

func (h *Handler) RollupHandler() queries.Handler[RollupQuery, dto.Rollup] {
	return queries.HandlerFunc[RollupQuery, dto.Rollup](h.Rollup)
}

func (h *Handler) SeriesHandler() queries.Handler[SeriesQuery, dto.Series] {
	return queries.HandlerFunc[SeriesQuery, dto.Series](h.Series)
}
