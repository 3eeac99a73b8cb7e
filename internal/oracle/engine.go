// Package oracle runs the per-node analytics pipeline: a single-threaded,
// synchronous sequence of remote reads feeding price derivation, risk
// scoring and sizing. Every run is a pure function of public chain data and
// the immutable configuration, so independent nodes reach bit-identical
// signals.
package oracle

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sibyl/internal/amm"
	"sibyl/internal/codec"
	"sibyl/internal/ethrpc"
	"sibyl/internal/risk"
	"sibyl/internal/sizing"
	"sibyl/internal/tally"
	"sibyl/pkg/types"
)

// reserveWordLen is the minimum getReserves payload: reserve0, reserve1 and
// the timestamp word.
const reserveWordLen = 96

// Params tunes an Engine beyond its pool registry.
type Params struct {
	Thresholds risk.Thresholds
	// Blocks24h approximates the 24h lookback as a block-count offset.
	Blocks24h uint64
	// SlippageLimit bounds the sizing search, in 10^-6 units.
	SlippageLimit uint64
}

// DefaultParams returns the stock engine parameters.
func DefaultParams() Params {
	return Params{
		Thresholds:    risk.DefaultThresholds(),
		Blocks24h:     17_280,
		SlippageLimit: sizing.DefaultSlippageLimit,
	}
}

// Engine executes the analytics pipeline against one RPC endpoint.
type Engine struct {
	caller   ethrpc.Caller
	registry Registry
	params   Params
}

// NewEngine creates an Engine over the given call boundary.
func NewEngine(caller ethrpc.Caller, registry Registry, params Params) *Engine {
	return &Engine{caller: caller, registry: registry, params: params}
}

// Execute runs the pipeline for raw request input and returns the node's
// signal. Constant-product pools produce the full analytics vector;
// concentrated-liquidity pools produce the single-price variant.
func (e *Engine) Execute(ctx context.Context, rawInput []byte) (*types.Signal, error) {
	pair, err := ParseInput(rawInput, e.registry)
	if err != nil {
		return nil, err
	}
	log.Printf("Requested pair: %s", pair)
	cfg := e.registry[pair]

	token0, err := e.token0(ctx, cfg.Pair)
	if err != nil {
		return nil, err
	}

	if cfg.Kind == amm.ConcentratedLiquidity {
		return e.executePriceOnly(ctx, pair, cfg, token0)
	}
	return e.executeFull(ctx, pair, cfg, token0)
}

func (e *Engine) executeFull(ctx context.Context, pair string, cfg amm.PoolConfig, token0 common.Address) (*types.Signal, error) {
	latest, err := e.caller.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	var block24h uint64
	if latest > e.params.Blocks24h {
		block24h = latest - e.params.Blocks24h
	}

	reservesNow, err := e.reserves(ctx, cfg.Pair, &latest)
	if err != nil {
		return nil, err
	}
	spotNow, err := amm.SpotFromReserves(cfg, token0, reservesNow)
	if err != nil {
		return nil, err
	}

	reserves24h, err := e.reserves(ctx, cfg.Pair, &block24h)
	if err != nil {
		return nil, err
	}
	price24h, err := amm.SpotFromReserves(cfg, token0, reserves24h)
	if err != nil {
		return nil, err
	}

	fairPrice := amm.FairPrice(spotNow, price24h)

	quoteReserve, err := reservesNow.QuoteReserve(cfg, token0)
	if err != nil {
		return nil, err
	}
	baseReserve, err := reservesNow.BaseReserve(cfg, token0)
	if err != nil {
		return nil, err
	}

	liquidityScore := risk.LiquidityScore(quoteReserve, e.params.Thresholds.LiquidityTarget)
	delta, err := risk.Divergence(spotNow, price24h)
	if err != nil {
		return nil, err
	}
	timeScore := risk.TimeScore(delta, e.params.Thresholds.DivergenceWarn)
	confidence := risk.Confidence(liquidityScore, timeScore)

	maxSafeSize, err := sizing.MaxSafeSize(quoteReserve, baseReserve, spotNow, e.params.SlippageLimit)
	if err != nil {
		return nil, err
	}

	flags := risk.Flags(delta, liquidityScore, confidence, e.params.Thresholds)

	log.Printf("fair_price: %s, confidence: %d, max_size: %s, flags: %d",
		fairPrice, confidence, maxSafeSize, flags)

	return &types.Signal{
		Pair:        pair,
		Block:       latest,
		SpotPrice:   spotNow,
		Price24h:    price24h,
		FairPrice:   fairPrice,
		MaxSafeSize: maxSafeSize,
		Scores: types.ScoreSet{
			Liquidity:  liquidityScore,
			Time:       timeScore,
			Confidence: confidence,
			Flags:      flags,
		},
	}, nil
}

func (e *Engine) executePriceOnly(ctx context.Context, pair string, cfg amm.PoolConfig, token0 common.Address) (*types.Signal, error) {
	word, err := e.callWord(ctx, cfg.Pair, SelectorSlot0, nil)
	if err != nil {
		return nil, err
	}
	if len(word) < codec.WordSize {
		return nil, fmt.Errorf("slot0 result too short: %d bytes", len(word))
	}
	sqrtPriceX96, err := codec.U256FromBE(word[:codec.WordSize])
	if err != nil {
		return nil, err
	}

	spot, err := amm.SpotFromSqrtPriceX96(cfg, token0, sqrtPriceX96)
	if err != nil {
		return nil, err
	}
	log.Printf("Computed price (scaled 1e6): %s", spot)

	return &types.Signal{Pair: pair, SpotPrice: spot, PriceOnly: true}, nil
}

func (e *Engine) token0(ctx context.Context, pool common.Address) (common.Address, error) {
	word, err := e.callWord(ctx, pool, SelectorToken0, nil)
	if err != nil {
		return common.Address{}, err
	}
	token0, err := codec.AddressFromWord(word)
	if err != nil {
		return common.Address{}, fmt.Errorf("parse token0: %w", err)
	}
	return token0, nil
}

func (e *Engine) reserves(ctx context.Context, pool common.Address, block *uint64) (amm.Reserves, error) {
	word, err := e.callWord(ctx, pool, SelectorGetReserves, block)
	if err != nil {
		return amm.Reserves{}, err
	}
	if len(word) < reserveWordLen {
		return amm.Reserves{}, fmt.Errorf("reserves result too short: %d bytes", len(word))
	}
	reserve0 := new(uint256.Int).SetBytes(word[0:32])
	reserve1 := new(uint256.Int).SetBytes(word[32:64])
	return amm.Reserves{Reserve0: reserve0, Reserve1: reserve1}, nil
}

func (e *Engine) callWord(ctx context.Context, to common.Address, selector string, block *uint64) ([]byte, error) {
	result, err := e.caller.Call(ctx, to, codec.CallData(selector), block)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s: %w", selector, err)
	}
	word, err := codec.DecodeHex(result)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", selector, err)
	}
	return word, nil
}

// EncodeSignal serializes a signal into its reveal payload: the ABI
// int256[] vector [fairPrice, confidence, maxSafeSize, flags] for the full
// pipeline, or the fixed-width little-endian u128 price for the light one.
func EncodeSignal(s *types.Signal) ([]byte, error) {
	if s.PriceOnly {
		return tally.EncodeU128LE(s.SpotPrice)
	}
	values := []*big.Int{
		s.FairPrice,
		new(big.Int).SetUint64(s.Scores.Confidence),
		s.MaxSafeSize,
		new(big.Int).SetUint64(s.Scores.Flags),
	}
	return tally.EncodeResult(values)
}
