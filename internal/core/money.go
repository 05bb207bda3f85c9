// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals. Parsing accepts both dot and comma separators and
// formatting renders US-dollar strings for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. The zero value is 0.
type Money struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney builds an amount from a whole number of cents.
func NewMoney(cents int64) Money {
	return Money{decimal.New(cents, -2)}
}

// MoneyFromFloat converts a float amount. Use only for literals and tests.
func MoneyFromFloat(f float64) Money {
	return Money{decimal.NewFromFloat(f)}
}

// MustMoney parses s and panics on failure.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Money{d}
}

// ParseAmount converts a user-entered decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to cents. Returns ErrInvalidAmount for invalid formats, signs, or zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return Zero, ErrInvalidAmount
	}
	return Money{d}, nil
}

func (m Money) Add(o Money) Money { return Money{m.Decimal.Add(o.Decimal)} }
func (m Money) Sub(o Money) Money { return Money{m.Decimal.Sub(o.Decimal)} }
func (m Money) Neg() Money        { return Money{m.Decimal.Neg()} }

// Mul scales the amount by a plain decimal factor.
func (m Money) Mul(f decimal.Decimal) Money { return Money{m.Decimal.Mul(f)} }

// Div divides the amount by a plain decimal divisor. Division by zero yields 0.
func (m Money) Div(d decimal.Decimal) Money {
	if d.IsZero() {
		return Zero
	}
	return Money{m.Decimal.Div(d)}
}

// Max returns the larger of m and o.
func (m Money) Max(o Money) Money {
	if m.GreaterThan(o.Decimal) {
		return m
	}
	return o
}

// Equal reports whether both amounts are numerically equal (1.5 == 1.50).
func (m Money) Equal(o Money) bool { return m.Decimal.Equal(o.Decimal) }

// Validate reports ErrInvalidAmount unless the amount is strictly positive.
func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Float returns the amount as a float64 for display and chart purposes.
// Note: use Money for calculations to avoid floating-point drift.
func (m Money) Float() float64 {
	return m.InexactFloat64()
}

// FormatCurrency renders an amount as US dollars with thousands separators,
// e.g. "$1,234.50" or "-$3.00".
func FormatCurrency(m Money) string {
	s := m.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if m.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
