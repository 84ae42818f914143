package num

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ToDecimal converts base units to a decimal amount with the given precision.
func ToDecimal(a *uint256.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(a.ToBig(), -int32(decimals))
}

// FromDecimal converts a decimal amount to base units. Sub-unit precision is rejected.
func FromDecimal(d decimal.Decimal, decimals uint8) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", d)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s exceeds %d decimals", d, decimals)
	}
	z, overflow := uint256.FromBig(shifted.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %s overflows 256 bits", d)
	}
	return z, nil
}

// Parse reads a human-readable amount such as "10.5".
func Parse(s string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d, decimals)
}

// Format renders base units as a human-readable amount.
func Format(a *uint256.Int, decimals uint8) string {
	return ToDecimal(a, decimals).String()
}
