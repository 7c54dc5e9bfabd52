// Package money converts between textual amounts and integer cents.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Parse converts an amount string into cents.
// Accepted forms: "1234.56", "1.234,56", "1234,56", "1,234.56", "-12,50".
// Currency symbols and surrounding spaces are ignored.
func Parse(s string) (int64, error) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, s)

	if clean == "" || clean == "-" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	clean = normalizeSeparators(clean)

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return d.Mul(hundred).Round(0).IntPart(), nil
}

// normalizeSeparators rewrites the string so '.' is the only decimal separator.
// When both separators are present the rightmost one is the decimal mark.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}

		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}

		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	default:
		return s
	}
}

// Format renders cents with two decimals and a '.' separator.
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// FromFloat converts a float amount into cents, rounding half away from zero.
func FromFloat(f float64) int64 {
	return decimal.NewFromFloat(f).Mul(hundred).Round(0).IntPart()
}
