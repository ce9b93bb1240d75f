package money

import (
	"errors"
	"testing"
)

func TestNew_NormalizesCurrency(t *testing.T) {
	m, err := New(1250, "eur")
	if err != nil || m.Currency != "EUR" {
		t.Fatalf("expected EUR, got %+v (%v)", m, err)
	}
	if _, err := New(100, "EURO"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestProRateAndPercent(t *testing.T) {
	hourly := Must(2000, "EUR")
	if got := hourly.ProRate(90, 60); got.Amount != 3000 {
		t.Fatalf("90 minutes at 20.00/h must be 30.00, got %s", got)
	}
	if got := hourly.ProRate(1, 0); got.Amount != 0 || got.Currency != "EUR" {
		t.Fatalf("zero denominator must yield zero, got %+v", got)
	}
	if got := Must(6000, "EUR").Percent(2000); got.Amount != 1200 {
		t.Fatalf("20%% of 60.00 must be 12.00, got %s", got)
	}
}

func TestString(t *testing.T) {
	if got := Must(-1205, "EUR").String(); got != "-12.05 EUR" {
		t.Fatalf("unexpected %q", got)
	}
}
