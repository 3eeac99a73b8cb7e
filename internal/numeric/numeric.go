// Package numeric centralizes the fixed-point arithmetic used by the oracle
// pipeline. Every value that crosses the node boundary is an integer scaled by
// Scale; all division truncates toward zero. Independent nodes must produce
// bit-identical results, so nothing in this package touches floating point.
package numeric

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// Scale is the fixed-point scale factor: one unit equals 10^-6.
const Scale = 1_000_000

var (
	// ErrDivideByZero is returned when a ratio has a zero denominator.
	ErrDivideByZero = errors.New("division by zero")
	// ErrRange is returned when a value does not fit in 128 bits.
	ErrRange = errors.New("value exceeds 128-bit range")
)

var ten = uint256.NewInt(10)

// ScaleU256 returns Scale as a fresh 256-bit value.
func ScaleU256() *uint256.Int {
	return uint256.NewInt(Scale)
}

// Pow10 returns 10^exp, saturating at the 256-bit maximum.
func Pow10(exp uint8) *uint256.Int {
	value := uint256.NewInt(1)
	for i := uint8(0); i < exp; i++ {
		value = SatMul(value, ten)
	}
	return value
}

// SatMul returns x*y, saturating at the 256-bit maximum.
func SatMul(x, y *uint256.Int) *uint256.Int {
	z := new(uint256.Int)
	if _, overflow := z.MulOverflow(x, y); overflow {
		z.SetAllOne()
	}
	return z
}

// SatAdd returns x+y, saturating at the 256-bit maximum.
func SatAdd(x, y *uint256.Int) *uint256.Int {
	z := new(uint256.Int)
	if _, overflow := z.AddOverflow(x, y); overflow {
		z.SetAllOne()
	}
	return z
}

// AbsDiff returns |x-y|.
func AbsDiff(x, y *uint256.Int) *uint256.Int {
	z := new(uint256.Int)
	if x.Cmp(y) >= 0 {
		return z.Sub(x, y)
	}
	return z.Sub(y, x)
}

// RatioScaled returns min(num*Scale/den, Scale): the scaled ratio of num to
// den, capped at one whole unit. The intermediate product is computed at full
// 256-bit width before the scale-down, never as floating point.
func RatioScaled(num, den *uint256.Int) (uint64, error) {
	if den.IsZero() {
		return 0, ErrDivideByZero
	}
	value := new(uint256.Int).Div(SatMul(num, ScaleU256()), den)
	if value.CmpUint64(Scale) > 0 {
		return Scale, nil
	}
	return value.Uint64(), nil
}

// ToUint128 narrows a 256-bit value to a 128-bit result, returned as a
// big.Int because Go has no native 128-bit integer. Fails with ErrRange when
// the value does not fit.
func ToUint128(x *uint256.Int) (*big.Int, error) {
	if x.BitLen() > 128 {
		return nil, ErrRange
	}
	return x.ToBig(), nil
}

// FromBig converts a non-negative big.Int into a 256-bit value. Fails with
// ErrRange on negative values or values wider than 256 bits.
func FromBig(x *big.Int) (*uint256.Int, error) {
	if x.Sign() < 0 {
		return nil, ErrRange
	}
	z, overflow := uint256.FromBig(x)
	if overflow {
		return nil, ErrRange
	}
	return z, nil
}
