// Package money converts between stored integer cents and the decimal dollar
// amounts exposed over JSON.
package money

import (
	"github.com/shopspring/decimal"
)

// Dollars renders cents as a dollar amount, e.g. 2100 -> 21.
func Dollars(cents int) float64 {
	return decimal.NewFromInt(int64(cents)).Shift(-2).InexactFloat64()
}

// LineTotal multiplies a unit price by quantity.
func LineTotal(unitCents, quantity int) int {
	return unitCents * quantity
}

// String formats cents with two decimals, e.g. 550 -> "5.50".
func String(cents int) string {
	return decimal.NewFromInt(int64(cents)).Shift(-2).StringFixed(2)
}
