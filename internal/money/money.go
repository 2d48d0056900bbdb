// Package money holds the decimal helpers used for every currency amount.
// Amounts carry two implied decimal places and are never negative.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for currency values.
const Places = 2

// Tolerance is the largest difference treated as equal when reconciling payments.
var Tolerance = decimal.New(1, -Places)

var hundred = decimal.NewFromInt(100)

// Round rounds half away from zero to two places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds all values, returning zero for none.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// MulQty multiplies a unit price by an integer quantity.
func MulQty(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// WithinTolerance reports whether a and b differ by at most Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// ClampZero replaces a negative amount with zero.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns part/whole*100 rounded to two places, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return Round(part.Div(whole).Mul(hundred))
}

// Parse reads a non-negative amount such as "1250.50".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", s)
	}
	return d, nil
}

// Or returns the value of n when set, otherwise fallback.
func Or(n decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if n.Valid {
		return n.Decimal
	}
	return fallback
}

// Some wraps d as a set NullDecimal.
func Some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
