// Package amm derives normalized base/quote prices from raw pool state.
// Two pool kinds are supported: constant-product pairs exposing reserves and
// concentrated-liquidity pools exposing a square-root price word. Both paths
// return an integer price scaled by 10^-6.
package amm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sibyl/internal/numeric"
)

// PoolKind selects the pricing formula for a pool. Dispatch happens once per
// pool configuration, not per call.
type PoolKind int

const (
	// ConstantProduct is a reserve-based x*y=k pair.
	ConstantProduct PoolKind = iota
	// ConcentratedLiquidity is a sqrtPriceX96-based pool.
	ConcentratedLiquidity
)

var (
	// ErrTokenMismatch is returned when the on-chain token0 matches neither
	// the configured base nor quote token.
	ErrTokenMismatch = errors.New("token0 matches neither base nor quote")
	// ErrZeroReserve is returned when the base-side reserve is zero.
	ErrZeroReserve = errors.New("base reserve is zero")
	// ErrZeroPrice is returned when a concentrated-liquidity price ratio is zero.
	ErrZeroPrice = errors.New("pool price is zero")
)

// PoolConfig describes one pool. Immutable, constructed once per request.
type PoolConfig struct {
	Pair          common.Address
	Base          common.Address
	Quote         common.Address
	BaseDecimals  uint8
	QuoteDecimals uint8
	Kind          PoolKind
}

// Reserves holds the raw on-chain magnitudes of a constant-product pair at a
// given block. Reserve ordering is pool-defined: resolution against the
// configured base/quote happens via the on-chain token0 address.
type Reserves struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

// BaseReserve resolves which reserve belongs to the configured base token.
func (r Reserves) BaseReserve(cfg PoolConfig, token0 common.Address) (*uint256.Int, error) {
	switch token0 {
	case cfg.Base:
		return r.Reserve0, nil
	case cfg.Quote:
		return r.Reserve1, nil
	}
	return nil, ErrTokenMismatch
}

// QuoteReserve resolves which reserve belongs to the configured quote token.
func (r Reserves) QuoteReserve(cfg PoolConfig, token0 common.Address) (*uint256.Int, error) {
	switch token0 {
	case cfg.Base:
		return r.Reserve1, nil
	case cfg.Quote:
		return r.Reserve0, nil
	}
	return nil, ErrTokenMismatch
}

// SpotFromReserves computes the quote-per-base price of a constant-product
// pair, scaled by 10^-6:
//
//	price = quoteReserve * 10^baseDecimals * Scale / (baseReserve * 10^quoteDecimals)
func SpotFromReserves(cfg PoolConfig, token0 common.Address, r Reserves) (*big.Int, error) {
	baseReserve, err := r.BaseReserve(cfg, token0)
	if err != nil {
		return nil, err
	}
	quoteReserve, err := r.QuoteReserve(cfg, token0)
	if err != nil {
		return nil, err
	}
	if baseReserve.IsZero() {
		return nil, ErrZeroReserve
	}

	numerator := numeric.SatMul(
		numeric.SatMul(quoteReserve, numeric.Pow10(cfg.BaseDecimals)),
		numeric.ScaleU256(),
	)
	denominator := numeric.SatMul(baseReserve, numeric.Pow10(cfg.QuoteDecimals))
	price := new(uint256.Int).Div(numerator, denominator)
	return numeric.ToUint128(price)
}

// SpotFromSqrtPriceX96 computes the quote-per-base price of a
// concentrated-liquidity pool, scaled by 10^-6. The sqrtPriceX96 word is
// squared into a ratio over a 2^192 fixed-point base; when token0 is the
// quote token the ratio is inverted symmetrically.
func SpotFromSqrtPriceX96(cfg PoolConfig, token0 common.Address, sqrtPriceX96 *uint256.Int) (*big.Int, error) {
	priceX192 := numeric.SatMul(sqrtPriceX96, sqrtPriceX96)
	q192 := new(uint256.Int).Lsh(uint256.NewInt(1), 192)

	var numerator, denominator *uint256.Int
	switch token0 {
	case cfg.Base:
		numerator = numeric.SatMul(
			numeric.SatMul(priceX192, numeric.ScaleU256()),
			numeric.Pow10(cfg.BaseDecimals),
		)
		denominator = numeric.SatMul(q192, numeric.Pow10(cfg.QuoteDecimals))
	case cfg.Quote:
		if priceX192.IsZero() {
			return nil, ErrZeroPrice
		}
		numerator = numeric.SatMul(
			numeric.SatMul(numeric.ScaleU256(), numeric.Pow10(cfg.QuoteDecimals)),
			q192,
		)
		denominator = numeric.SatMul(numeric.Pow10(cfg.BaseDecimals), priceX192)
	default:
		return nil, ErrTokenMismatch
	}

	price := new(uint256.Int).Div(numerator, denominator)
	return numeric.ToUint128(price)
}

var (
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

// FairPrice blends the current spot sample with a sample from ~24h earlier:
//
//	fair = (2*spotNow + price24h) / 3
//
// Integer division truncates toward zero. The weighting and truncation are
// part of the cross-node agreement surface and must not change.
func FairPrice(spotNow, price24h *big.Int) *big.Int {
	fair := new(big.Int).Mul(spotNow, two)
	fair.Add(fair, price24h)
	return fair.Quo(fair, three)
}
