// Package utils provides utility functions for the application.
package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is stored as integer cents everywhere in this codebase. Platform APIs
// report spend as decimal dollar strings; conversions go through shopspring/decimal
// so no float arithmetic ever touches a stored amount.

var centsPerDollar = decimal.NewFromInt(100)

// CentsFromDollarString parses a decimal dollar amount (e.g. "12.34") into cents.
func CentsFromDollarString(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid currency amount %q: %w", s, err)
	}
	return d.Mul(centsPerDollar).Round(0).IntPart(), nil
}

// CentsFromDollars converts a float dollar amount into cents. Only used at
// config/API boundaries where the input is already a float.
func CentsFromDollars(dollars float64) int64 {
	return decimal.NewFromFloat(dollars).Mul(centsPerDollar).Round(0).IntPart()
}

// DollarsFromCents renders cents as a dollar amount for logs and API responses.
func DollarsFromCents(cents int64) float64 {
	f, _ := decimal.NewFromInt(cents).Div(centsPerDollar).Float64()
	return f
}

// DollarStringFromCents renders cents as a two-decimal dollar string.
func DollarStringFromCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(centsPerDollar).StringFixed(2)
}

// ScaleCents multiplies a cent amount by a factor (e.g. 1.25 for +25%),
// rounding to the nearest cent.
func ScaleCents(cents int64, factor float64) int64 {
	return decimal.NewFromInt(cents).Mul(decimal.NewFromFloat(factor)).Round(0).IntPart()
}
