// Package money provides the fixed-point Amount used for balances and
// banknote face values.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// FractionalDigits is the number of digits kept after the decimal point.
const FractionalDigits = 2

// ErrInvalidAmount is returned for malformed amounts, amounts with more than
// two fractional digits, and non-positive amounts where a positive one is required.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a decimal value fixed at two fractional digits. The zero value is 0.00.
type Amount struct {
	d decimal.Decimal
}

// Zero returns 0.00.
func Zero() Amount { return Amount{} }

// FromCents builds an Amount from minor units, e.g. FromCents(1050) == 10.50.
func FromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -FractionalDigits)}
}

// FromDecimal rounds d half-away-from-zero to two fractional digits.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d.Round(FractionalDigits)}
}

// Parse reads a plain decimal string such as "12", "12.5" or "1,200.50".
// A leading "$" is accepted, and commas only as thousands separators. More than two fractional digits is rejected
// rather than silently rounded.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if strings.Contains(s, ",") {
		if !wellGrouped(s) {
			return Amount{}, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	if d.Exponent() < -FractionalDigits && !d.Equal(d.Round(FractionalDigits)) {
		return Amount{}, ErrInvalidAmount
	}
	return FromDecimal(d), nil
}

// wellGrouped reports whether the integer part of s is split into
// thousands: one to three leading digits, then groups of exactly three.
func wellGrouped(s string) bool {
	s = strings.TrimLeft(s, "+-")
	whole, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ",") {
		return false
	}
	groups := strings.Split(whole, ",")
	for i, g := range groups {
		if g == "" || len(g) > 3 || (i > 0 && len(g) != 3) {
			return false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic("money: cannot parse " + s)
	}
	return a
}

// ParsePositive parses s and requires the result to be greater than zero.
func ParsePositive(s string) (Amount, error) {
	a, err := Parse(s)
	if err != nil {
		return Amount{}, err
	}
	if !a.IsPositive() {
		return Amount{}, ErrInvalidAmount
	}
	return a, nil
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }

func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }

func (a Amount) IsZero() bool { return a.d.IsZero() }

func (a Amount) IsPositive() bool { return a.d.IsPositive() }

func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// Cents returns the amount in minor units.
func (a Amount) Cents() int64 { return a.d.Shift(FractionalDigits).IntPart() }

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// String renders the canonical storage form, always with two fractional digits.
func (a Amount) String() string { return a.d.StringFixed(FractionalDigits) }

// Format renders the display form with a dollar sign and thousands
// separators, e.g. "$1,234.50" or "-$3.00".
func (a Amount) Format() string {
	s := a.d.Abs().StringFixed(FractionalDigits)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if a.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// MarshalText encodes the canonical storage form.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes any form accepted by Parse.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
