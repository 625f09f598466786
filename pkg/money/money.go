// Package money provides a fixed-point representation for fees, payments
// and refunds. Amounts are stored as int64 minor units (paise) so arithmetic
// is exact; floats never enter the picture.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in minor units. 10000 represents 100.00.
type Amount int64

// Zero is the additive identity, useful as an explicit "free" fee.
const Zero Amount = 0

var (
	// ErrRange reports arithmetic that would overflow int64 minor units.
	ErrRange = errors.New("money: amount out of range")
	// ErrSyntax reports input that is not a decimal with at most two places.
	ErrSyntax = errors.New("money: malformed amount")
)

// FromMinor wraps a raw minor-unit count, e.g. a database column.
func FromMinor(v int64) Amount { return Amount(v) }

// Minor returns the raw minor-unit count for storage.
func (a Amount) Minor() int64 { return int64(a) }

// Parse converts decimal text such as "100", "100.5" or "100.50" into an
// Amount. At most two fractional digits are accepted; anything finer would
// silently lose money.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return 0, ErrSyntax
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || !allDigits(whole) {
		return 0, ErrSyntax
	}
	if hasFrac && (frac == "" || len(frac) > 2 || !allDigits(frac)) {
		return 0, ErrSyntax
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrRange
	}
	if units > (math.MaxInt64-99)/100 {
		return 0, ErrRange
	}

	minor := units * 100
	if hasFrac {
		for len(frac) < 2 {
			frac += "0"
		}
		cents, _ := strconv.ParseInt(frac, 10, 64)
		minor += cents
	}
	if neg {
		minor = -minor
	}
	return Amount(minor), nil
}

// MustParse is Parse for trusted literals in tests and seed data.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("money: MustParse(%q): %v", s, err))
	}
	return a
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Add returns a+b, failing on int64 overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, ErrRange
	}
	return s, nil
}

// Sub returns a-b, failing on int64 overflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	d := a - b
	if (b < 0 && d < a) || (b > 0 && d > a) {
		return 0, ErrRange
	}
	return d, nil
}

// Cmp returns -1, 0 or +1 ordering a against b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsZero reports a == 0.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive reports a > 0.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative reports a < 0.
func (a Amount) IsNegative() bool { return a < 0 }

// String renders the amount as decimal text with two places, e.g. "100.00".
func (a Amount) String() string {
	u := uint64(a)
	sign := ""
	if a < 0 {
		sign = "-"
		u = uint64(-(int64(a) + 1)) + 1
	}
	return fmt.Sprintf("%s%d.%02d", sign, u/100, u%100)
}

// MarshalJSON renders the amount as a decimal string. Strings survive every
// JSON decoder intact; numbers risk a float detour.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts either a decimal string ("100.00") or a bare JSON
// number (100.5) with at most two fractional digits.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
