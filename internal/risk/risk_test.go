package risk

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"sibyl/internal/numeric"
)

func TestLiquidityScore(t *testing.T) {
	target := uint256.NewInt(500_000_000_000)

	tests := []struct {
		name    string
		reserve uint64
		want    uint64
	}{
		{name: "at target", reserve: 500_000_000_000, want: numeric.Scale},
		{name: "above target", reserve: 900_000_000_000, want: numeric.Scale},
		{name: "half target", reserve: 250_000_000_000, want: 500_000},
		{name: "empty pool", reserve: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, LiquidityScore(uint256.NewInt(tt.reserve), target))
		})
	}
}

func TestDivergence(t *testing.T) {
	got, err := Divergence(big.NewInt(100), big.NewInt(90))
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), got)

	// Symmetric in direction of the move.
	got, err = Divergence(big.NewInt(100), big.NewInt(110))
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), got)

	// Capped at one whole unit.
	got, err = Divergence(big.NewInt(1), big.NewInt(10))
	require.NoError(t, err)
	require.Equal(t, uint64(numeric.Scale), got)

	_, err = Divergence(big.NewInt(0), big.NewInt(10))
	require.ErrorIs(t, err, numeric.ErrDivideByZero)
}

func TestTimeScore(t *testing.T) {
	const warn = 50_000

	require.Equal(t, uint64(numeric.Scale), TimeScore(0, warn))
	require.Equal(t, uint64(500_000), TimeScore(warn/2, warn))
	require.Equal(t, uint64(0), TimeScore(warn, warn))
	require.Equal(t, uint64(0), TimeScore(warn*10, warn))
}

func TestConfidence(t *testing.T) {
	require.Equal(t, uint64(numeric.Scale), Confidence(numeric.Scale, numeric.Scale))
	require.Equal(t, uint64(600_000), Confidence(numeric.Scale, 0))
	require.Equal(t, uint64(400_000), Confidence(0, numeric.Scale))
	require.Equal(t, uint64(0), Confidence(0, 0))
}

func TestFlags(t *testing.T) {
	thresholds := DefaultThresholds()

	t.Run("all warnings set", func(t *testing.T) {
		flags := Flags(
			thresholds.DivergenceWarn+1,
			thresholds.LiquidityWarn-1,
			thresholds.ConfidenceWarn-1,
			thresholds,
		)
		require.Equal(t, uint64(FlagDivergence|FlagLowLiquidity|FlagLowConfidence), flags)
		require.Equal(t, uint64(7), flags)
	})

	t.Run("healthy signal", func(t *testing.T) {
		flags := Flags(0, numeric.Scale, numeric.Scale, thresholds)
		require.Equal(t, uint64(0), flags)
	})

	t.Run("divergence at threshold is not flagged", func(t *testing.T) {
		flags := Flags(thresholds.DivergenceWarn, numeric.Scale, numeric.Scale, thresholds)
		require.Equal(t, uint64(0), flags)
	})
}
