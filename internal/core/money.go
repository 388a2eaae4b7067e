// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and formatting them for display.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are bounded so their decimal expansion stays short. Stored values
// get more room than input so sums of valid input always load back.
const (
	maxInputIntDigits  = 15
	maxInputScale      = 20
	maxStoredIntDigits = 30
	maxStoredScale     = 40
)

// ParseAmount converts user input to a decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// allowed so refunds and balance decreases can be entered. Empty or
// non-numeric text, exponent notation and out-of-range values yield
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-100")  -> -100, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
//	ParseAmount("1e6")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, truncate(s))
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return parseBounded(s, maxInputIntDigits, maxInputScale)
}

// DecodeAmount parses a stored or transmitted amount. Unlike ParseAmount it
// takes JSON number syntax, exponents included, but still rejects values
// with more than 30 integer digits or 40 decimal places.
func DecodeAmount(s string) (decimal.Decimal, error) {
	return parseBounded(s, maxStoredIntDigits, maxStoredScale)
}

// parseBounded checks the coefficient and exponent before anything expands
// the value.
func parseBounded(s string, intDigits, scale int64) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, truncate(s))
	}
	exp := int64(d.Exponent())
	if -exp > scale || int64(d.NumDigits())+exp > intDigits {
		return decimal.Zero, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, truncate(s))
	}
	return d, nil
}

func truncate(s string) string {
	const limit = 32
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// FormatAmount renders an amount with two decimals for display, e.g. "$12.50"
// or "-$3.00".
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
