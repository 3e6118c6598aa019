// Package units converts between human display amounts ("1.5") and base-unit
// integers scaled by a token's decimals.
package units

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// ErrNegative is returned for amounts below zero.
	ErrNegative = errors.New("units: amount is negative")
	// ErrPrecision is returned when an amount has more fractional digits than the
	// asset supports.
	ErrPrecision = errors.New("units: too many decimal places")
	// ErrRange is returned when the base-unit amount does not fit in 256 bits.
	ErrRange = errors.New("units: amount out of range")
)

// Parse converts a display amount into base units.
func Parse(display string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return nil, fmt.Errorf("units: parse %q: %w", display, err)
	}
	if d.IsNegative() {
		return nil, ErrNegative
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s allows %d", ErrPrecision, display, decimals)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, ErrRange
	}
	return v, nil
}

// Format renders base units as a display amount without trailing zeros.
func Format(amount *uint256.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount.ToBig(), -int32(decimals)).String()
}
