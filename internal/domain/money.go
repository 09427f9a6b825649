package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts cross the API as decimal strings with at most two fractional digits
// and are stored as int64 cents. Parsing is exact; no float arithmetic.

// ParseAmount converts a decimal string like "100.00" to cents.
func ParseAmount(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	return cents.IntPart(), nil
}

// ParsePositiveAmount is ParseAmount with a > 0 check.
func ParsePositiveAmount(s string) (int64, error) {
	cents, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	return cents, nil
}

// FormatCents renders cents as a two-decimal string, e.g. 10000 → "100.00".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// FeeRate is a platform fee percentage bounded to [0, 1].
type FeeRate struct {
	rate decimal.Decimal
}

// NewFeeRate parses and bounds-checks a fee rate string such as "0.02".
func NewFeeRate(s string) (FeeRate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return FeeRate{}, fmt.Errorf("invalid fee rate %q", s)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return FeeRate{}, fmt.Errorf("fee rate %s out of range [0,1]", d)
	}
	return FeeRate{rate: d}, nil
}

// FeeFor computes the platform fee in cents for an amount in cents, rounded
// half-up to the cent. Computed once at payment creation and recorded
// permanently; never recomputed from a later balance.
func (f FeeRate) FeeFor(amountCents int64) int64 {
	return decimal.NewFromInt(amountCents).Mul(f.rate).Round(0).IntPart()
}

// Decimal exposes the raw rate for audit records.
func (f FeeRate) Decimal() decimal.Decimal { return f.rate }

func (f FeeRate) String() string { return f.rate.String() }
