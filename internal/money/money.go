// Package money holds amount parsing and formatting rules shared by the
// conversation flows, the balance engine and the sheet serialization.
//
// User input accepts both "," and "." as the decimal separator and tolerates
// internal spaces used as thousands grouping ("1 200,50"). Persisted values
// always use "." with exactly two fraction digits.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses free-text user input into a decimal amount.
// Returns an error for empty or non-numeric input.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("ParseAmount: empty input")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ParseAmount: %q is not a number: %w", s, err)
	}
	return d, nil
}

// ParsePositive parses an amount and requires it to be strictly positive.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("ParsePositive: amount must be greater than zero, got %s", d)
	}
	return d, nil
}

// ParseNonNegative parses an amount and requires it to be zero or positive.
func ParseNonNegative(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("ParseNonNegative: amount must not be negative, got %s", d)
	}
	return d, nil
}

// ParseCell parses an amount stored in a sheet cell. Empty cells mean zero.
func ParseCell(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return ParseAmount(s)
}

// Serialize renders an amount the way it is written to the sheet:
// "." separator, exactly two fraction digits, no grouping.
func Serialize(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Format renders an amount for display: two fraction digits and spaces as
// thousands separators ("12 345.67").
func Format(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}
