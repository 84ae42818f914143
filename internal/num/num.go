// Package num provides overflow-checked arithmetic on 256-bit unsigned amounts.
package num

import (
	"github.com/holiman/uint256"

	"token-launchpad/internal/domain"
)

// scale is the fixed-point multiplier used for price math (1e18).
var scale = uint256.NewInt(1_000_000_000_000_000_000)

// Scale returns a fresh copy of 1e18.
func Scale() *uint256.Int { return scale.Clone() }

// New returns v as a 256-bit integer.
func New(v uint64) *uint256.Int { return uint256.NewInt(v) }

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// Pow10 returns 10^n.
func Pow10(n uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
}

// Units returns v·10^decimals. Panics on overflow; only for constants and tests.
func Units(v uint64, decimals uint8) *uint256.Int {
	z, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(v), Pow10(decimals))
	if overflow {
		panic("num: units overflow")
	}
	return z
}

// Add returns a+b.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, domain.ErrOverflow
	}
	return z, nil
}

// Sub returns a-b.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, domain.ErrUnderflow
	}
	return z, nil
}

// Mul returns a*b.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, domain.ErrOverflow
	}
	return z, nil
}

// Div returns a/b truncated toward zero.
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, domain.ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// MulDiv returns a*b/d, multiplying first.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	p, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return Div(p, d)
}

// MulDivU is MulDiv with small integer factors.
func MulDivU(a *uint256.Int, b, d uint64) (*uint256.Int, error) {
	return MulDiv(a, uint256.NewInt(b), uint256.NewInt(d))
}

// Min returns a copy of the smaller value.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

// SubFloor returns a-b, or zero when b > a.
func SubFloor(a, b *uint256.Int) *uint256.Int {
	if b.Gt(a) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// Sqrt returns floor(sqrt(a)).
func Sqrt(a *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(a)
}

// Quote returns the amount of B equivalent to amountA at reserves rA:rB.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA.IsZero() {
		return nil, domain.ErrInsufficientAmount
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, domain.ErrInsufficientLiquidity
	}
	return MulDiv(amountA, reserveB, reserveA)
}

// Sum adds all values.
func Sum(values ...*uint256.Int) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, v := range values {
		next, err := Add(total, v)
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}
