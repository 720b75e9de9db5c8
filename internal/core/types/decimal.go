// Package types provides fixed-scale decimal arithmetic for ledger quantities
// and monetary amounts. All operations take and return canonical decimal
// strings; values never pass through a binary floating-point type.
package types

import (
	"github.com/shopspring/decimal"

	"kardex/internal/core/apperror"
)

// Canonical scales used across the ledger.
const (
	// ScaleStandard is used for quantities, prices and totals.
	ScaleStandard int32 = 4

	// ScaleIntermediate is used for multiplication/division intermediates
	// so rounding does not compound before a final round to ScaleStandard
	// or ScaleMonetary.
	ScaleIntermediate int32 = 8

	// ScaleMonetary is used for display-level money amounts.
	ScaleMonetary int32 = 2
)

// parse converts a canonical decimal string into a decimal value.
// Non-numeric input is a validation error, surfaced before any computation.
func parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, apperror.NewValidation("operand is not a valid decimal").
			WithDetail("operand", s).
			WithCause(err)
	}
	return d, nil
}

// fixed renders d as a fixed-scale string, rounding half away from zero.
func fixed(d decimal.Decimal, scale int32) string {
	return d.StringFixed(scale)
}

// Zero returns the zero value at the given scale (e.g. "0.0000").
func Zero(scale int32) string {
	return decimal.Zero.StringFixed(scale)
}

// FromInt returns the canonical standard-scale string for an integer.
func FromInt(n int64) string {
	return decimal.NewFromInt(n).StringFixed(ScaleStandard)
}

// Add returns a+b at the given scale.
func Add(a, b string, scale int32) (string, error) {
	da, err := parse(a)
	if err != nil {
		return "", err
	}
	db, err := parse(b)
	if err != nil {
		return "", err
	}
	return fixed(da.Add(db), scale), nil
}

// Sub returns a-b at the given scale.
func Sub(a, b string, scale int32) (string, error) {
	da, err := parse(a)
	if err != nil {
		return "", err
	}
	db, err := parse(b)
	if err != nil {
		return "", err
	}
	return fixed(da.Sub(db), scale), nil
}

// Mul returns a*b at the given scale. Callers on the costing path pass
// ScaleIntermediate and round to ScaleStandard only at the end.
func Mul(a, b string, scale int32) (string, error) {
	da, err := parse(a)
	if err != nil {
		return "", err
	}
	db, err := parse(b)
	if err != nil {
		return "", err
	}
	return fixed(da.Mul(db), scale), nil
}

// Div returns a/b at the given scale, rounded half away from zero.
// Division by zero is a DIVISION_BY_ZERO error, never a silent zero.
func Div(a, b string, scale int32) (string, error) {
	da, err := parse(a)
	if err != nil {
		return "", err
	}
	db, err := parse(b)
	if err != nil {
		return "", err
	}
	if db.IsZero() {
		return "", apperror.NewDivisionByZero().WithDetail("dividend", a)
	}
	return fixed(da.DivRound(db, scale), scale), nil
}

// Mod returns the remainder of a/b at the given scale.
func Mod(a, b string, scale int32) (string, error) {
	da, err := parse(a)
	if err != nil {
		return "", err
	}
	db, err := parse(b)
	if err != nil {
		return "", err
	}
	if db.IsZero() {
		return "", apperror.NewDivisionByZero().WithDetail("dividend", a)
	}
	return fixed(da.Mod(db), scale), nil
}

// Pow raises base to an integer exponent at the given scale.
func Pow(base string, exponent int64, scale int32) (string, error) {
	d, err := parse(base)
	if err != nil {
		return "", err
	}
	return fixed(d.Pow(decimal.NewFromInt(exponent)), scale), nil
}

// Abs returns the absolute value at the given scale.
func Abs(a string, scale int32) (string, error) {
	d, err := parse(a)
	if err != nil {
		return "", err
	}
	return fixed(d.Abs(), scale), nil
}

// Round re-expresses a at the given scale, rounding half away from zero
// ("1.005" at scale 2 is "1.01", "-1.555" at scale 2 is "-1.56").
func Round(a string, scale int32) (string, error) {
	d, err := parse(a)
	if err != nil {
		return "", err
	}
	return fixed(d, scale), nil
}

// ToMonetary rounds a to the monetary scale.
func ToMonetary(a string) (string, error) {
	return Round(a, ScaleMonetary)
}

// Compare returns -1, 0 or 1 for a<b, a==b, a>b.
func Compare(a, b string) (int, error) {
	da, err := parse(a)
	if err != nil {
		return 0, err
	}
	db, err := parse(b)
	if err != nil {
		return 0, err
	}
	return da.Cmp(db), nil
}

// Equals reports whether a == b numerically.
func Equals(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c == 0, err
}

// GreaterThan reports whether a > b.
func GreaterThan(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c > 0, err
}

// LessThan reports whether a < b.
func LessThan(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c < 0, err
}

// GreaterThanOrEqual reports whether a >= b.
func GreaterThanOrEqual(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c >= 0, err
}

// LessThanOrEqual reports whether a <= b.
func LessThanOrEqual(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c <= 0, err
}

// IsZero reports whether a is numerically zero.
func IsZero(a string) (bool, error) {
	d, err := parse(a)
	if err != nil {
		return false, err
	}
	return d.IsZero(), nil
}

// IsPositive reports whether a > 0.
func IsPositive(a string) (bool, error) {
	d, err := parse(a)
	if err != nil {
		return false, err
	}
	return d.IsPositive(), nil
}
