package dto

import "tutorbook/internal/domain/stats"

type SeriesPoint struct {
	Date         string   `json:"date"`
	Earnings     MoneyDTO `json:"earnings"`
	BookingCount int      `json:"booking_count"`
}

type Rollup struct {
	ProviderID      string        `json:"provider_id"`
	Window          string        `json:"window"`
	GrossEarnings   MoneyDTO      `json:"gross_earnings"`
	NetEarnings     MoneyDTO      `json:"net_earnings"`
	PlatformFee     MoneyDTO      `json:"platform_fee"`
	PlatformFeeRate float64       `json:"platform_fee_rate"`
	BookingCount    int           `json:"booking_count"`
	CompletedHours  float64       `json:"completed_hours"`
	Series          []SeriesPoint `json:"series"`
}

type Series struct {
	ProviderID string        `json:"provider_id"`
	Window     string        `json:"window"`
	Points     []SeriesPoint `json:"points"`
}

func MapSeries(points []stats.Point) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(points))
	for _, p := range points {
		out = append(out, SeriesPoint{Date: p.Date.String(), Earnings: MapMoney(p.Earnings), BookingCount: p.BookingCount})
	}
	return out
}

func MapRollup(r stats.Rollup) Rollup {
	return Rollup{
		ProviderID:      r.ProviderID,
		Window:          string(r.Window),
		GrossEarnings:   MapMoney(r.GrossEarnings),
		NetEarnings:     MapMoney(r.NetEarnings),
		PlatformFee:     MapMoney(r.PlatformFee),
		PlatformFeeRate: r.PlatformFeeRate,
		BookingCount:    r.BookingCount,
		CompletedHours:  r.CompletedHours,
		Series:          MapSeries(r.Series),
	}
}
