package sizing

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// A WCRO/USDC-shaped pool: 500k USDC (6 decimals) against 1M WCRO
// (18 decimals), spot 0.5 quote per base scaled 1e6.
var (
	poolReserveIn  = uint256.MustFromDecimal("500000000000")
	poolReserveOut = uint256.MustFromDecimal("1000000000000000000000000")
	poolSpot       = big.NewInt(500_000)
)

func TestMaxSafeSizeZeroReserves(t *testing.T) {
	_, err := MaxSafeSize(uint256.NewInt(0), poolReserveOut, poolSpot, DefaultSlippageLimit)
	require.ErrorIs(t, err, ErrZeroReserve)

	_, err = MaxSafeSize(poolReserveIn, uint256.NewInt(0), poolSpot, DefaultSlippageLimit)
	require.ErrorIs(t, err, ErrZeroReserve)
}

func TestMaxSafeSizeFindsFeasibleSize(t *testing.T) {
	size, err := MaxSafeSize(poolReserveIn, poolReserveOut, poolSpot, DefaultSlippageLimit)
	require.NoError(t, err)
	require.Equal(t, 1, size.Sign(), "a liquid pool must admit a nonzero safe size")

	// Never more than half the input reserve.
	require.True(t, size.Cmp(new(uint256.Int).Div(poolReserveIn, uint256.NewInt(2)).ToBig()) <= 0)
}

func TestMaxSafeSizeMonotonicInBound(t *testing.T) {
	bounds := []uint64{2_000, 10_000, 50_000, 200_000}

	var previous *big.Int
	for _, bound := range bounds {
		size, err := MaxSafeSize(poolReserveIn, poolReserveOut, poolSpot, bound)
		require.NoError(t, err)
		if previous != nil {
			require.True(t, size.Cmp(previous) >= 0,
				"size must not shrink as the slippage bound widens: bound=%d", bound)
		}
		previous = size
	}
}

func TestMaxSafeSizeInfeasibleSpot(t *testing.T) {
	// A spot price wildly off the pool's own pricing leaves no size within
	// the bound; the search reports 0, not an error.
	size, err := MaxSafeSize(poolReserveIn, poolReserveOut, big.NewInt(1_000_000_000_000), DefaultSlippageLimit)
	require.NoError(t, err)
	require.Equal(t, 0, size.Sign())
}

func TestAmountOut(t *testing.T) {
	// 1000 in against 1000/1000 reserves with the 0.3% fee:
	// 1000*997*1000 / (1000*1000 + 1000*997) = 499.
	out := amountOut(uint256.NewInt(1000), uint256.NewInt(1000), uint256.NewInt(1000))
	require.Equal(t, uint256.NewInt(499), out)

	out = amountOut(uint256.NewInt(0), uint256.NewInt(1000), uint256.NewInt(1000))
	require.True(t, out.IsZero())
}
