package services

import (
	"fmt"
	"math"

	"pos-payment-service/models"
)

// DefaultTaxRate applies when neither the request nor the configuration names one.
const DefaultTaxRate = 0.08

// ComputeTotals derives tax, tip and total from a subtotal and a tip
// percentage. Tax and tip are rounded to whole cents independently before they
// are summed.
func ComputeTotals(subtotal models.Money, tipPercentage, taxRate float64) (models.TotalsBreakdown, error) {
	if err := validateRate(tipPercentage, "tip percentage", math.Inf(1)); err != nil {
		return models.TotalsBreakdown{}, err
	}
	if subtotal.Amount < 0 {
		return models.TotalsBreakdown{}, fmt.Errorf("%w: subtotal cannot be negative", models.ErrInvalidAmount)
	}
	tip, err := roundCents(float64(subtotal.Amount) * tipPercentage / 100)
	if err != nil {
		return models.TotalsBreakdown{}, fmt.Errorf("tip: %w", err)
	}
	return ComputeTotalsWithTip(subtotal, models.Money{Amount: tip, Currency: subtotal.Currency}, taxRate)
}

// ComputeTotalsWithTip is ComputeTotals for a tip given as an amount.
func ComputeTotalsWithTip(subtotal, tip models.Money, taxRate float64) (models.TotalsBreakdown, error) {
	if subtotal.Amount < 0 {
		return models.TotalsBreakdown{}, fmt.Errorf("%w: subtotal cannot be negative", models.ErrInvalidAmount)
	}
	if tip.Amount < 0 {
		return models.TotalsBreakdown{}, fmt.Errorf("%w: tip cannot be negative", models.ErrInvalidAmount)
	}
	if err := validateRate(taxRate, "tax rate", 1); err != nil {
		return models.TotalsBreakdown{}, err
	}

	currency := models.NormalizeCurrency(subtotal.Currency)
	tax, err := roundCents(float64(subtotal.Amount) * taxRate)
	if err != nil {
		return models.TotalsBreakdown{}, fmt.Errorf("tax: %w", err)
	}
	total, err := models.AddCents(subtotal.Amount, tax, tip.Amount)
	if err != nil {
		return models.TotalsBreakdown{}, fmt.Errorf("total: %w", err)
	}
	return models.TotalsBreakdown{
		Subtotal: models.Money{Amount: subtotal.Amount, Currency: currency},
		Tax:      models.Money{Amount: tax, Currency: currency},
		Tip:      models.Money{Amount: tip.Amount, Currency: currency},
		Total:    models.Money{Amount: total, Currency: currency},
	}, nil
}

// Subtotal sums the line totals of a bill.
func Subtotal(lines []models.OrderLine, currency string) (models.Money, error) {
	sum := models.Money{Currency: models.NormalizeCurrency(currency)}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return models.Money{}, fmt.Errorf("%w: quantity for %q must be positive", models.ErrInvalidAmount, l.Name)
		}
		if l.UnitPrice.Amount < 0 {
			return models.Money{}, fmt.Errorf("%w: price for %q cannot be negative", models.ErrInvalidAmount, l.Name)
		}
		line, err := l.LineTotal()
		if err != nil {
			return models.Money{}, err
		}
		if sum.Amount, err = models.AddCents(sum.Amount, line.Amount); err != nil {
			return models.Money{}, fmt.Errorf("subtotal: %w", err)
		}
	}
	return sum, nil
}

func validateRate(v float64, name string, max float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > max {
		return fmt.Errorf("%w: %s %v out of range", models.ErrInvalidAmount, name, v)
	}
	return nil
}

// maxCents is 2^63 as a float64; anything at or above it does not convert.
const maxCents = float64(1 << 63)

func roundCents(v float64) (int64, error) {
	r := math.Round(v)
	if math.IsNaN(r) || r < 0 || r >= maxCents {
		return 0, fmt.Errorf("%w: amount out of range", models.ErrInvalidAmount)
	}
	return int64(r), nil
}
