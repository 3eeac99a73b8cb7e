// Package tally reconciles independently produced reveals into one consensus
// value: a per-field median over every reveal that decodes cleanly. A
// malformed reveal is logged and discarded, never fatal to the batch.
package tally

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Mode selects the reveal wire encoding for a pipeline variant.
type Mode int

const (
	// ModeU128LE decodes fixed-width 16-byte little-endian unsigned reveals.
	ModeU128LE Mode = iota
	// ModeIntArray decodes ABI-encoded int256[] reveals.
	ModeIntArray
)

// PipelineArity is the field count of the full analytics pipeline:
// fair price, confidence, max safe size, flags.
const PipelineArity = 4

var (
	// ErrNoConsensus is returned when no reveal decodes successfully or the
	// accepted count is below the quorum.
	ErrNoConsensus = errors.New("no consensus among revealed results")
	// ErrArityMismatch is returned when accepted reveals disagree on field count.
	ErrArityMismatch = errors.New("mismatched field arity in reveals")
	// ErrU128Length is returned for little-endian reveals that are not 16 bytes.
	ErrU128Length = errors.New("u128 reveal must be 16 bytes")
)

// Options tunes aggregation for a pipeline.
type Options struct {
	// MinReveals is the quorum: the minimum number of accepted reveals
	// required to produce a result. Zero means 1.
	MinReveals int
	// Arity, when nonzero, is the required field count of every reveal.
	// When zero the first accepted reveal fixes the batch arity.
	Arity int
}

// Result is the ordered vector of per-field medians.
type Result struct {
	Values []*big.Int
}

var int256Array = func() abi.Type {
	t, err := abi.NewType("int256[]", "", nil)
	if err != nil {
		panic(err)
	}
	return t
}()

var resultArgs = abi.Arguments{{Type: int256Array}}

// Aggregate decodes each reveal under the given mode, discards the ones that
// fail, and takes the median of every field position independently across
// the survivors.
func Aggregate(reveals [][]byte, mode Mode, opts Options) (*Result, error) {
	accepted := make([][]*big.Int, 0, len(reveals))
	for i, reveal := range reveals {
		values, err := decodeReveal(reveal, mode)
		if err != nil {
			log.Printf("Discarding reveal %d: %v", i, err)
			continue
		}
		accepted = append(accepted, values)
	}

	quorum := opts.MinReveals
	if quorum < 1 {
		quorum = 1
	}
	if len(accepted) < quorum {
		return nil, fmt.Errorf("%w: %d of %d reveals accepted, quorum %d",
			ErrNoConsensus, len(accepted), len(reveals), quorum)
	}

	arity := opts.Arity
	if arity == 0 {
		arity = len(accepted[0])
	}
	for _, row := range accepted {
		if len(row) != arity {
			return nil, fmt.Errorf("%w: want %d fields, got %d", ErrArityMismatch, arity, len(row))
		}
	}

	medians := make([]*big.Int, arity)
	for field := 0; field < arity; field++ {
		column := make([]*big.Int, len(accepted))
		for i, row := range accepted {
			column[i] = row[field]
		}
		sort.Slice(column, func(i, j int) bool { return column[i].Cmp(column[j]) < 0 })
		medians[field] = medianSorted(column)
	}
	return &Result{Values: medians}, nil
}

func decodeReveal(reveal []byte, mode Mode) ([]*big.Int, error) {
	switch mode {
	case ModeU128LE:
		value, err := DecodeU128LE(reveal)
		if err != nil {
			return nil, err
		}
		return []*big.Int{value}, nil
	case ModeIntArray:
		return DecodeIntArray(reveal)
	}
	return nil, fmt.Errorf("unknown reveal mode %d", mode)
}

// DecodeU128LE decodes a fixed-width little-endian 128-bit unsigned reveal.
func DecodeU128LE(b []byte) (*big.Int, error) {
	if len(b) != 16 {
		return nil, fmt.Errorf("%w: got %d", ErrU128Length, len(b))
	}
	lo := binary.LittleEndian.Uint64(b[:8])
	hi := binary.LittleEndian.Uint64(b[8:])
	value := new(big.Int).SetUint64(hi)
	value.Lsh(value, 64)
	return value.Or(value, new(big.Int).SetUint64(lo)), nil
}

// EncodeU128LE encodes a non-negative value into the fixed-width
// little-endian 128-bit reveal format.
func EncodeU128LE(value *big.Int) ([]byte, error) {
	if value.Sign() < 0 || value.BitLen() > 128 {
		return nil, fmt.Errorf("value outside u128 range: %s", value)
	}
	buf := make([]byte, 16)
	be := value.Bytes()
	for i, b := range be {
		buf[len(be)-1-i] = b
	}
	return buf, nil
}

// DecodeIntArray decodes an ABI-encoded int256[] reveal.
func DecodeIntArray(b []byte) ([]*big.Int, error) {
	unpacked, err := resultArgs.Unpack(b)
	if err != nil {
		return nil, fmt.Errorf("unpack int256[]: %w", err)
	}
	values, ok := unpacked[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected unpack type %T", unpacked[0])
	}
	if len(values) == 0 {
		return nil, errors.New("empty int256[] reveal")
	}
	return values, nil
}

// EncodeResult ABI-encodes a value vector as int256[] for downstream chain
// consumption. Single-value pipelines encode a 1-element array; the array
// form keeps the output extensible.
func EncodeResult(values []*big.Int) ([]byte, error) {
	return resultArgs.Pack(values)
}

// medianSorted takes the median of an ascending column. For an even count
// the midpoint of the two central values is computed as low + (high-low)/2,
// which cannot overflow at the top of the integer range.
func medianSorted(column []*big.Int) *big.Int {
	mid := len(column) / 2
	if len(column)%2 != 0 {
		return new(big.Int).Set(column[mid])
	}
	low, high := column[mid-1], column[mid]
	half := new(big.Int).Sub(high, low)
	half.Quo(half, big.NewInt(2))
	return half.Add(low, half)
}
