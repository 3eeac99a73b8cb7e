// Package risk scores a price sample for liquidity depth, temporal
// divergence and overall confidence. Scores live in [0, numeric.Scale]; the
// flags bitmask carries non-blocking diagnostic signals.
package risk

import (
	"math/big"

	"github.com/holiman/uint256"

	"sibyl/internal/numeric"
)

// Diagnostic flag bits.
const (
	FlagDivergence    = 1 << 0
	FlagLowLiquidity  = 1 << 1
	FlagLowConfidence = 1 << 2
)

// Confidence weighting, in Scale units (60/40).
const (
	liquidityWeight = 600_000
	timeWeight      = 400_000
)

// Thresholds holds the scoring parameters for one pool. The values are
// configuration, not compile-time constants, so the engine stays testable
// across pools and networks.
type Thresholds struct {
	// LiquidityTarget is the quote-side reserve, in raw quote units, at
	// which the liquidity score saturates.
	LiquidityTarget *uint256.Int
	// LiquidityWarn is the liquidity score below which FlagLowLiquidity is set.
	LiquidityWarn uint64
	// ConfidenceWarn is the confidence score below which FlagLowConfidence is set.
	ConfidenceWarn uint64
	// DivergenceWarn is the spot/24h delta at which the time score bottoms
	// out and above which FlagDivergence is set.
	DivergenceWarn uint64
}

// DefaultThresholds returns the stock parameters for a 6-decimal stable
// quote: a 500k-unit liquidity target, 0.2 warn scores and a 5% divergence
// ceiling.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LiquidityTarget: uint256.NewInt(500_000_000_000),
		LiquidityWarn:   200_000,
		ConfidenceWarn:  200_000,
		DivergenceWarn:  50_000,
	}
}

// LiquidityScore maps the quote-side reserve onto [0, Scale]: Scale at or
// above the target, linear below it.
func LiquidityScore(quoteReserve, target *uint256.Int) uint64 {
	if quoteReserve.Cmp(target) >= 0 {
		return numeric.Scale
	}
	score := new(uint256.Int).Div(numeric.SatMul(quoteReserve, numeric.ScaleU256()), target)
	return score.Uint64()
}

// Divergence returns |spotNow - price24h| * Scale / spotNow, capped at Scale.
// Fails with numeric.ErrDivideByZero when the spot price is zero.
func Divergence(spotNow, price24h *big.Int) (uint64, error) {
	spot, err := numeric.FromBig(spotNow)
	if err != nil {
		return 0, err
	}
	past, err := numeric.FromBig(price24h)
	if err != nil {
		return 0, err
	}
	return numeric.RatioScaled(numeric.AbsDiff(spot, past), spot)
}

// TimeScore decays linearly from Scale at zero divergence to 0 at the warn
// threshold.
func TimeScore(delta uint64, warn uint64) uint64 {
	if delta >= warn {
		return 0
	}
	penalty := new(uint256.Int).Div(
		numeric.SatMul(uint256.NewInt(delta), numeric.ScaleU256()),
		uint256.NewInt(warn),
	)
	return numeric.Scale - penalty.Uint64()
}

// Confidence is the 60/40 weighted blend of the liquidity and time scores,
// in the same Scale units.
func Confidence(liquidityScore, timeScore uint64) uint64 {
	weighted := numeric.SatAdd(
		numeric.SatMul(uint256.NewInt(liquidityWeight), uint256.NewInt(liquidityScore)),
		numeric.SatMul(uint256.NewInt(timeWeight), uint256.NewInt(timeScore)),
	)
	return new(uint256.Int).Div(weighted, numeric.ScaleU256()).Uint64()
}

// Flags builds the diagnostic bitmask. The bits are advisory signals for
// downstream consumers, never errors.
func Flags(delta, liquidityScore, confidenceScore uint64, t Thresholds) uint64 {
	var flags uint64
	if delta > t.DivergenceWarn {
		flags |= FlagDivergence
	}
	if liquidityScore < t.LiquidityWarn {
		flags |= FlagLowLiquidity
	}
	if confidenceScore < t.ConfidenceWarn {
		flags |= FlagLowConfidence
	}
	return flags
}
