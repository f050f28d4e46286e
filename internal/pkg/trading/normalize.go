// Package trading provides exchange-grid rounding utilities.
package trading

import (
	"github.com/shopspring/decimal"
)

// Normalize floors value onto the grid (tick size for prices, step size
// for quantities) and re-expresses it at the precision the grid implies.
// Flooring is deliberate: a quantity must never exceed what the notional
// affords and a price must never cross the intended level.
func Normalize(value, grid float64) float64 {
	if grid <= 0 || value <= 0 {
		return 0
	}
	v := decimal.NewFromFloat(value)
	g := decimal.NewFromFloat(grid)
	floored := v.Div(g).Floor().Mul(g)
	out, _ := floored.Truncate(PrecisionOf(grid)).Float64()
	return out
}

// PrecisionOf returns the number of significant decimal digits in a grid
// value, e.g. 0.001 -> 3, 0.1 -> 1, 1 -> 0.
func PrecisionOf(grid float64) int32 {
	if grid <= 0 {
		return 0
	}
	exp := decimal.NewFromFloat(grid).Exponent()
	if exp >= 0 {
		return 0
	}
	return -exp
}

// Format renders value floored to the grid as the exchange expects it,
// with trailing zeros stripped.
func Format(value, grid float64) string {
	if grid <= 0 || value <= 0 {
		return "0"
	}
	v := decimal.NewFromFloat(value)
	g := decimal.NewFromFloat(grid)
	return v.Div(g).Floor().Mul(g).Truncate(PrecisionOf(grid)).String()
}
