package types

import "math/big"

// PriceSample is a quote-per-base price, scaled by 10^-6, tagged with the
// block height it was observed at.
type PriceSample struct {
	Price *big.Int
	Block uint64
}

// ScoreSet holds the risk scores of one signal. Each score lies in
// [0, 1e6]; Flags is a diagnostic bitmask.
type ScoreSet struct {
	Liquidity  uint64
	Time       uint64
	Confidence uint64
	Flags      uint64
}

// Signal is one node's independently computed oracle output for a pair.
// Integer fields are fixed-point scaled by 10^-6 where applicable; no
// floating point appears in a Signal because the value crosses the node
// boundary.
type Signal struct {
	Pair        string
	Block       uint64
	SpotPrice   *big.Int
	Price24h    *big.Int
	FairPrice   *big.Int
	MaxSafeSize *big.Int
	Scores      ScoreSet
	// PriceOnly marks the lighter-weight pipeline variant that reveals a
	// single price instead of the full analytics vector.
	PriceOnly bool
}
