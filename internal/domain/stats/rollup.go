package stats

import (
	"errors"
	"sort"
	"time"

	"tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/money"
	"tutorbook/internal/domain/shared/timewindow"
)

// DefaultPlatformFeeBasisPoints is the platform share of paid earnings (20%).
const DefaultPlatformFeeBasisPoints int64 = 2000

var ErrMixedCurrencies = errors.New("stats: bookings use more than one currency")

type Point struct {
	Date         timewindow.Date
	Earnings     money.Money
	BookingCount int
}

type Rollup struct {
	ProviderID      string
	Window          timewindow.Range
	GrossEarnings   money.Money
	PlatformFee     money.Money
	NetEarnings     money.Money
	PlatformFeeRate float64
	BookingCount    int
	CompletedHours  float64
	Series          []Point
}

// Aggregator derives dashboard figures from booking records. It never mutates them.
type Aggregator struct {
	FeeBasisPoints int64
	Currency       string
}

func (a Aggregator) Rollup(providerID string, window timewindow.Range, bookings []*booking.Booking, now time.Time) (Rollup, error) {
	selected := a.selectBookings(providerID, window, bookings, now)
	currency, err := a.currency(selected)
	if err != nil {
		return Rollup{}, err
	}
	out := Rollup{
		ProviderID:      providerID,
		Window:          window,
		GrossEarnings:   money.Zero(currency),
		PlatformFeeRate: float64(a.feeBasisPoints()) / money.BasisPointsBase,
	}
	for _, b := range selected {
		if b.Paid {
			out.GrossEarnings.Amount += b.Price.Amount
		}
		if countsAsBooking(b) {
			out.BookingCount++
		}
		if b.Status == booking.StatusCompleted {
			out.CompletedHours += b.Window().Hours()
		}
	}
	out.PlatformFee = out.GrossEarnings.Percent(a.feeBasisPoints())
	out.NetEarnings = money.Money{Amount: out.GrossEarnings.Amount - out.PlatformFee.Amount, Currency: currency}
	out.Series = a.buildSeries(selected, window, now, currency, false)
	return out, nil
}

// Series buckets the provider's bookings per calendar day of their start, oldest first.
// Days without contributing bookings are omitted unless zeroFill is set and the window is bounded.
func (a Aggregator) Series(providerID string, window timewindow.Range, bookings []*booking.Booking, now time.Time, zeroFill bool) ([]Point, error) {
	selected := a.selectBookings(providerID, window, bookings, now)
	currency, err := a.currency(selected)
	if err != nil {
		return nil, err
	}
	return a.buildSeries(selected, window, now, currency, zeroFill), nil
}

func (a Aggregator) buildSeries(selected []*booking.Booking, window timewindow.Range, now time.Time, currency string, zeroFill bool) []Point {
	buckets := make(map[timewindow.Date]*Point)
	for _, b := range selected {
		counted := countsAsBooking(b)
		if !b.Paid && !counted {
			continue
		}
		day := timewindow.DateOf(b.Start)
		p, ok := buckets[day]
		if !ok {
			p = &Point{Date: day, Earnings: money.Zero(currency)}
			buckets[day] = p
		}
		if b.Paid {
			p.Earnings.Amount += b.Price.Amount
		}
		if counted {
			p.BookingCount++
		}
	}
	if zeroFill {
		if cutoff, ok := window.Cutoff(now); ok {
			last := timewindow.DateOf(now)
			for day := timewindow.DateOf(cutoff); !last.Before(day); day = day.AddDays(1) {
				if _, exists := buckets[day]; !exists {
					buckets[day] = &Point{Date: day, Earnings: money.Zero(currency)}
				}
			}
		}
	}
	points := make([]Point, 0, len(buckets))
	for _, p := range buckets {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

func (a Aggregator) selectBookings(providerID string, window timewindow.Range, bookings []*booking.Booking, now time.Time) []*booking.Booking {
	out := make([]*booking.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b == nil || b.ProviderID != providerID {
			continue
		}
		if !window.Includes(b.Start, now) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (a Aggregator) currency(selected []*booking.Booking) (string, error) {
	currency := a.Currency
	for _, b := range selected {
		if b.Price.Currency == "" {
			continue
		}
		if currency == "" {
			currency = b.Price.Currency
			continue
		}
		if b.Price.Currency != currency {
			return "", ErrMixedCurrencies
		}
	}
	return currency, nil
}

func (a Aggregator) feeBasisPoints() int64 {
	if a.FeeBasisPoints <= 0 {
		return DefaultPlatformFeeBasisPoints
	}
	return a.FeeBasisPoints
}

func countsAsBooking(b *booking.Booking) bool {
	return b.Status == booking.StatusConfirmed || b.Status == booking.StatusCompleted
}
