// Package types provides common type aliases and numeric utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Decimal is the fixed-point numeric type used for every regulatory quantity:
// volumes in hectoliters, degrees Plato, tax rates and tax amounts.
// Repeated aggregation over float64 drifts; decimal does not.
type Decimal = decimal.Decimal

// NewFromString parses a decimal from its canonical string form.
// This is the preferred constructor for values coming from configuration or API input.
func NewFromString(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}

// MustDecimal parses a decimal string, panicking on error.
// Use only for constants and tests.
func MustDecimal(s string) Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewFromInt creates a decimal from an integer.
func NewFromInt(n int64) Decimal {
	return decimal.NewFromInt(n)
}

// Zero is the zero decimal value.
func Zero() Decimal {
	return decimal.Zero
}

// LitersPerHl converts between liters and hectoliters.
var LitersPerHl = decimal.NewFromInt(100)

// LitersToHl converts a quantity in liters to hectoliters.
func LitersToHl(liters Decimal) Decimal {
	return liters.Div(LitersPerHl)
}

// IsPositive reports whether d > 0.
func IsPositive(d Decimal) bool {
	return d.Sign() > 0
}
