// Package sizing finds the largest trade that stays within a slippage bound
// when executed through a constant-product pool.
package sizing

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"sibyl/internal/numeric"
)

const (
	// Constant-product swap fee: 0.3%.
	feeNumerator   = 997
	feeDenominator = 1000

	// iterations bounds the binary search; 28 halvings converge over the
	// full 256-bit input range.
	iterations = 28

	// DefaultSlippageLimit is 1% in Scale units.
	DefaultSlippageLimit = 10_000
)

// ErrZeroReserve is returned when either pool reserve is zero.
var ErrZeroReserve = errors.New("pool reserves are zero")

// The effective execution price is expressed over a 10^18 base before being
// compared against the 10^-6-scaled spot price; the original agreement
// surface fixed this and it must be reproduced exactly.
var effectivePriceScale = numeric.Pow10(18)

// MaxSafeSize binary-searches the largest input amount in [0, reserveIn/2]
// whose effective execution price stays within slippageLimit of spot1e6.
// Returns 0 when no feasible size exists.
//
// Assumption: slippage is monotonically non-decreasing in trade size for a
// constant-product pool with positive reserves, which is what justifies the
// binary search.
func MaxSafeSize(reserveIn, reserveOut *uint256.Int, spot1e6 *big.Int, slippageLimit uint64) (*big.Int, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrZeroReserve
	}
	spot, err := numeric.FromBig(spot1e6)
	if err != nil {
		return nil, err
	}

	one := uint256.NewInt(1)
	low := new(uint256.Int)
	high := new(uint256.Int).Div(reserveIn, uint256.NewInt(2))
	best := new(uint256.Int)

	for i := 0; i < iterations; i++ {
		mid := new(uint256.Int).Add(low, high)
		mid.Div(mid, uint256.NewInt(2))
		if mid.IsZero() {
			break
		}

		out := amountOut(mid, reserveIn, reserveOut)
		if out.IsZero() {
			high = saturatingDec(mid, one)
			continue
		}

		effective := new(uint256.Int).Div(numeric.SatMul(mid, effectivePriceScale), out)
		if _, err := numeric.ToUint128(effective); err != nil {
			return nil, err
		}
		slippage, err := numeric.RatioScaled(numeric.AbsDiff(effective, spot), spot)
		if err != nil {
			return nil, err
		}

		if slippage < slippageLimit {
			best.Set(mid)
			low = new(uint256.Int).Add(mid, one)
		} else {
			high = saturatingDec(mid, one)
		}
	}

	return numeric.ToUint128(best)
}

// amountOut applies the constant-product formula with the 0.3% fee:
//
//	out = in*997*reserveOut / (reserveIn*1000 + in*997)
func amountOut(amountIn, reserveIn, reserveOut *uint256.Int) *uint256.Int {
	inWithFee := numeric.SatMul(amountIn, uint256.NewInt(feeNumerator))
	numerator := numeric.SatMul(inWithFee, reserveOut)
	denominator := numeric.SatAdd(numeric.SatMul(reserveIn, uint256.NewInt(feeDenominator)), inWithFee)
	return new(uint256.Int).Div(numerator, denominator)
}

func saturatingDec(x, delta *uint256.Int) *uint256.Int {
	if x.Cmp(delta) < 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, delta)
}
