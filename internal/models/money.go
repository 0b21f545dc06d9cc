package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by an Amount.
const Scale = 4

var (
	ErrNegativeAmount  = fmt.Errorf("%w: amount must not be negative", ErrMalformed)
	ErrAmountPrecision = fmt.Errorf("%w: amount has more than %d fractional digits", ErrMalformed, Scale)
	ErrAmountOverflow  = errors.New("amount out of range")
)

// Amount is a monetary value expressed in ten-thousandths of a currency unit.
// It is a plain integer so that balances add up exactly.
type Amount int64

// ParseAmount parses a non-negative decimal string such as "1.5" or "0.0001".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: parse amount %q: %v", ErrMalformed, s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("parse amount %q: %w", s, ErrNegativeAmount)
	}
	return AmountFromDecimal(d)
}

// MustParseAmount is like ParseAmount but panics on error.
// It is meant for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromDecimal converts d without rounding. It fails when d carries more
// than Scale fractional digits or does not fit.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(Scale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s: %w", d, ErrAmountPrecision)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: amount %s: %w", ErrMalformed, d, ErrAmountOverflow)
	}
	return Amount(scaled.IntPart()), nil
}

// Decimal returns a as a decimal with Scale fractional digits.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// String formats a with exactly Scale fractional digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// Add returns a+b, or ErrAmountOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, ErrAmountOverflow
	}
	return s, nil
}

// Sub returns a-b, or ErrAmountOverflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	s := a - b
	if (b > 0 && s > a) || (b < 0 && s < a) {
		return 0, ErrAmountOverflow
	}
	return s, nil
}

// MarshalJSON encodes a as a quoted fixed-point string, like decimal does.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare JSON numbers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	v, err := AmountFromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
