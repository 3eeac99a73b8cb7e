package oracle

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"sibyl/internal/risk"
	"sibyl/internal/tally"
	"sibyl/pkg/types"
)

// stubCaller answers the pipeline's reads from canned words, keyed by the
// call data's selector and the requested block height.
type stubCaller struct {
	latest   uint64
	token0   common.Address
	reserves map[uint64][2]*uint256.Int
	slot0    *uint256.Int
	calls    int
}

func (s *stubCaller) Call(_ context.Context, _ common.Address, data string, block *uint64) (string, error) {
	s.calls++
	switch data {
	case "0x" + SelectorToken0:
		return "0x" + hex.EncodeToString(common.LeftPadBytes(s.token0.Bytes(), 32)), nil
	case "0x" + SelectorGetReserves:
		height := s.latest
		if block != nil {
			height = *block
		}
		pair, ok := s.reserves[height]
		if !ok {
			return "", context.Canceled
		}
		word := make([]byte, 96)
		pair[0].WriteToSlice(word[0:32])
		pair[1].WriteToSlice(word[32:64])
		return "0x" + hex.EncodeToString(word), nil
	case "0x" + SelectorSlot0:
		word := make([]byte, 32)
		s.slot0.WriteToSlice(word)
		return "0x" + hex.EncodeToString(word), nil
	}
	return "", context.Canceled
}

func (s *stubCaller) BlockNumber(context.Context) (uint64, error) {
	return s.latest, nil
}

// A steady 1M WCRO / 500k USDC pool: spot 0.5 USDC per WCRO at both heights.
func steadyStub() *stubCaller {
	wcro := uint256.MustFromDecimal("1000000000000000000000000") // 1e24
	usdc := uint256.NewInt(500_000_000_000)                      // 5e11
	return &stubCaller{
		latest: 20_000,
		token0: wcroAddress,
		reserves: map[uint64][2]*uint256.Int{
			20_000: {wcro, usdc},
			2_720:  {wcro, usdc}, // 20_000 - 17_280
		},
	}
}

func TestExecuteFullPipeline(t *testing.T) {
	stub := steadyStub()
	engine := NewEngine(stub, DefaultRegistry(), DefaultParams())

	signal, err := engine.Execute(context.Background(), []byte("WCRO-USDC"))
	require.NoError(t, err)

	require.Equal(t, "WCRO-USDC", signal.Pair)
	require.Equal(t, uint64(20_000), signal.Block)
	require.False(t, signal.PriceOnly)

	require.Equal(t, big.NewInt(500_000), signal.SpotPrice)
	require.Equal(t, big.NewInt(500_000), signal.Price24h)
	require.Equal(t, big.NewInt(500_000), signal.FairPrice)

	// 500k USDC of quote depth meets the liquidity target exactly, and the
	// price has not moved, so every score saturates.
	require.Equal(t, uint64(1_000_000), signal.Scores.Liquidity)
	require.Equal(t, uint64(1_000_000), signal.Scores.Time)
	require.Equal(t, uint64(1_000_000), signal.Scores.Confidence)
	require.Equal(t, uint64(0), signal.Scores.Flags)

	require.Positive(t, signal.MaxSafeSize.Sign())
	half := uint256.NewInt(250_000_000_000).ToBig()
	require.LessOrEqual(t, signal.MaxSafeSize.Cmp(half), 0)
}

func TestExecuteDivergedPool(t *testing.T) {
	stub := steadyStub()
	// Quote depth doubled at the latest height: spot jumps from 0.5 to 1.0.
	stub.reserves[20_000] = [2]*uint256.Int{
		uint256.MustFromDecimal("1000000000000000000000000"),
		uint256.NewInt(1_000_000_000_000),
	}
	engine := NewEngine(stub, DefaultRegistry(), DefaultParams())

	signal, err := engine.Execute(context.Background(), []byte("WCRO-USDC"))
	require.NoError(t, err)

	require.Equal(t, big.NewInt(1_000_000), signal.SpotPrice)
	require.Equal(t, big.NewInt(500_000), signal.Price24h)
	// (2*1_000_000 + 500_000) / 3
	require.Equal(t, big.NewInt(833_333), signal.FairPrice)

	// |1.0 - 0.5| / 0.5 = 100% divergence: time score collapses and the
	// divergence flag is raised.
	require.Equal(t, uint64(0), signal.Scores.Time)
	require.Equal(t, uint64(600_000), signal.Scores.Confidence)
	require.Equal(t, uint64(risk.FlagDivergence), signal.Scores.Flags)
}

func TestExecutePriceOnly(t *testing.T) {
	stub := &stubCaller{
		token0: usdtAddress,
		slot0:  new(uint256.Int).Lsh(uint256.NewInt(1), 96),
	}
	engine := NewEngine(stub, DefaultRegistry(), DefaultParams())

	signal, err := engine.Execute(context.Background(), []byte("USDT-USDC"))
	require.NoError(t, err)

	require.True(t, signal.PriceOnly)
	require.Equal(t, big.NewInt(1_000_000), signal.SpotPrice)
	require.Nil(t, signal.FairPrice)
}

func TestExecuteInvalidInputMakesNoCalls(t *testing.T) {
	stub := steadyStub()
	engine := NewEngine(stub, DefaultRegistry(), DefaultParams())

	_, err := engine.Execute(context.Background(), []byte("DOGE-USDC"))
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Zero(t, stub.calls)
}

func TestParseInput(t *testing.T) {
	registry := DefaultRegistry()

	tests := []struct {
		name    string
		raw     []byte
		want    string
		wantErr bool
	}{
		{name: "bare pair", raw: []byte("WCRO-USDC"), want: "WCRO-USDC"},
		{name: "lowercase", raw: []byte("wcro-usdc"), want: "WCRO-USDC"},
		{name: "padded", raw: []byte("  WCRO-USDC\n"), want: "WCRO-USDC"},
		{name: "json object", raw: []byte(`{"pair":"vvs-wcro"}`), want: "VVS-WCRO"},
		{name: "json string", raw: []byte(`"WBTC-WCRO"`), want: "WBTC-WCRO"},
		{name: "empty", raw: nil, wantErr: true},
		{name: "unknown pair", raw: []byte("DOGE-USDC"), wantErr: true},
		{name: "malformed json", raw: []byte(`{"pair":`), wantErr: true},
		{name: "json without pair", raw: []byte(`{"symbol":"WCRO-USDC"}`), wantErr: true},
		{name: "invalid utf8", raw: []byte{0xff, 0xfe}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := ParseInput(tt.raw, registry)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, pair)
		})
	}
}

func TestEncodeSignalRoundTrip(t *testing.T) {
	stub := steadyStub()
	engine := NewEngine(stub, DefaultRegistry(), DefaultParams())

	signal, err := engine.Execute(context.Background(), []byte("WCRO-USDC"))
	require.NoError(t, err)

	payload, err := EncodeSignal(signal)
	require.NoError(t, err)

	values, err := tally.DecodeIntArray(payload)
	require.NoError(t, err)
	require.Len(t, values, 4)
	require.Equal(t, signal.FairPrice, values[0])
	require.Equal(t, int64(1_000_000), values[1].Int64())
	require.Equal(t, signal.MaxSafeSize, values[2])
	require.Equal(t, int64(0), values[3].Int64())
}

func TestEncodeSignalPriceOnly(t *testing.T) {
	signal := &types.Signal{Pair: "USDT-USDC", SpotPrice: big.NewInt(999_850), PriceOnly: true}

	payload, err := EncodeSignal(signal)
	require.NoError(t, err)
	require.Len(t, payload, 16)

	price, err := tally.DecodeU128LE(payload)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(999_850), price)
}
