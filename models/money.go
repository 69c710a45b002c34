package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultCurrency is used whenever a request does not name one.
const DefaultCurrency = "usd"

// ErrInvalidAmount is returned for negative, zero (where a charge is required),
// malformed or overflowing amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// Money is an amount in minor units (cents) with an ISO 4217 currency code.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney validates and builds a Money value. Currency is lower-cased and
// defaults to DefaultCurrency.
func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
	}
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}, nil
}

// NormalizeCurrency lower-cases a currency code and applies the default.
func NormalizeCurrency(currency string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// MinorUnits converts a major-unit decimal (dollars) to minor units, rounding
// half away from zero.
func MinorUnits(major float64) (int64, error) {
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return 0, fmt.Errorf("%w: not a number", ErrInvalidAmount)
	}
	if major < 0 {
		return 0, fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
	}
	cents := math.Round(major * 100)
	if cents > math.MaxInt64/2 {
		return 0, fmt.Errorf("%w: amount too large", ErrInvalidAmount)
	}
	return int64(cents), nil
}

// MajorUnits converts minor units back to a decimal for JSON responses.
func MajorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// Major returns the amount in major units.
func (m Money) Major() float64 {
	return MajorUnits(m.Amount)
}

// Add sums two amounts of the same currency.
func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

// AddCents sums non-negative cent amounts, failing instead of wrapping.
func AddCents(amounts ...int64) (int64, error) {
	var sum int64
	for _, a := range amounts {
		if a < 0 {
			return 0, fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
		}
		if sum > math.MaxInt64-a {
			return 0, fmt.Errorf("%w: amount too large", ErrInvalidAmount)
		}
		sum += a
	}
	return sum, nil
}

// MulCents multiplies a non-negative cent amount by a non-negative factor,
// failing instead of wrapping.
func MulCents(amount, factor int64) (int64, error) {
	if amount < 0 || factor < 0 {
		return 0, fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
	}
	if factor != 0 && amount > math.MaxInt64/factor {
		return 0, fmt.Errorf("%w: amount too large", ErrInvalidAmount)
	}
	return amount * factor, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, strings.ToUpper(m.Currency))
}

// OrderLine is one item on a bill.
type OrderLine struct {
	Name      string `json:"name"`
	UnitPrice Money  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// LineTotal is unitPrice × quantity. It fails when the product does not fit
// in int64 cents.
func (l OrderLine) LineTotal() (Money, error) {
	amount, err := MulCents(l.UnitPrice.Amount, int64(l.Quantity))
	if err != nil {
		return Money{}, fmt.Errorf("line %q: %w", l.Name, err)
	}
	return Money{Amount: amount, Currency: l.UnitPrice.Currency}, nil
}

// TotalsBreakdown holds the figures for one bill. Total always equals
// Subtotal + Tax + Tip, each rounded to whole cents before summation.
type TotalsBreakdown struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Tip      Money `json:"tip"`
	Total    Money `json:"total"`
}

// TotalsView is the major-unit rendering returned to clients.
type TotalsView struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Tip      float64 `json:"tip"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// View renders the breakdown in major units.
func (t TotalsBreakdown) View() TotalsView {
	return TotalsView{
		Subtotal: t.Subtotal.Major(),
		Tax:      t.Tax.Major(),
		Tip:      t.Tip.Major(),
		Total:    t.Total.Major(),
		Currency: t.Total.Currency,
	}
}
