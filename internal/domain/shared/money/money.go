package money

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCurrency = errors.New("money: invalid currency code")

// BasisPointsBase is 100% expressed in basis points.
const BasisPointsBase = 10000

// Money keeps amounts in integer minor units to avoid floating point issues.
type Money struct {
	Amount   int64  `json:"amount" bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	currency = strings.ToUpper(currency)
	return Money{Amount: amount, Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns an empty amount in the given currency.
func Zero(currency string) Money {
	return Money{Currency: strings.ToUpper(currency)}
}

// ProRate scales the amount by num/den, truncating toward zero.
func (m Money) ProRate(num, den int64) Money {
	if den == 0 {
		return Money{Currency: m.Currency}
	}
	return Money{Amount: m.Amount * num / den, Currency: m.Currency}
}

// Percent returns the share of the amount given in basis points (2000 = 20%).
func (m Money) Percent(basisPoints int64) Money {
	return m.ProRate(basisPoints, BasisPointsBase)
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsPositive() bool {
	return m.Amount > 0
}

func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, m.Currency)
}
