package models

import (
	"github.com/shopspring/decimal"
)

var centsPerUnit = decimal.NewFromInt(100)

// ParsePrice converts a major-unit amount string ("25.50") to minor
// units without float drift. Fractions smaller than a cent are rejected
// by the exactness check.
func ParsePrice(s string) (int64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	cents := d.Mul(centsPerUnit)
	if !cents.IsInteger() {
		return 0, false
	}
	return cents.IntPart(), true
}

// FormatPrice renders minor units as a major-unit string with two
// decimal places, e.g. 2550 -> "25.50".
func FormatPrice(cents int64) string {
	return decimal.NewFromInt(cents).Div(centsPerUnit).StringFixed(2)
}
