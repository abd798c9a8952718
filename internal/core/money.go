// Package core holds the domain model and the settlement arithmetic for
// D-ops: task pricing, dutch-pay distribution, payer balancing and
// aggregation.
//
// This file contains parsing and formatting for won amounts.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseWon converts a user-entered amount string to integer won.
//
// It accepts plain digits with optional comma grouping ("1,200,000") and an
// optional leading minus for manually entered offsets. Fractional input is
// rejected; won has no minor unit.
func ParseWon(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if neg {
		v = -v
	}
	return v, nil
}

// FormatWon renders an amount with comma grouping for display, e.g.
// "-1,200,000".
func FormatWon(won int64) string {
	neg := won < 0
	if neg {
		won = -won
	}
	digits := strconv.FormatInt(won, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// String implements fmt.Stringer for log output.
func (m Money) String() string {
	return FormatWon(m.Won)
}
