// Package normalize converts locale-formatted amounts and dates found on
// invoices into canonical values. Nothing in this package returns an error:
// input that cannot be interpreted is reported as "not recoverable".
package normalize

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// currencyGlyphs are stripped from amount tokens before parsing.
var currencyGlyphs = []string{"₹", "$", "€", "£"}

// ParseAmount parses an amount token such as "1,234.50", "$ 99" or "₹1 200".
// Thousands separators, whitespace and currency glyphs are removed first.
// The second return value is false when the token is not a finite number.
func ParseAmount(token string) (float64, bool) {
	cleaned := strings.ReplaceAll(token, ",", "")
	for _, glyph := range currencyGlyphs {
		cleaned = strings.ReplaceAll(cleaned, glyph, "")
	}
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cleaned)

	if cleaned == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// Amount is the optional form of ParseAmount: nil in, nil out, and nil for
// anything unparseable.
func Amount(token *string) *float64 {
	if token == nil {
		return nil
	}
	value, ok := ParseAmount(*token)
	if !ok {
		return nil
	}
	return &value
}
