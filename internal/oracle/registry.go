package oracle

import (
	"github.com/ethereum/go-ethereum/common"

	"sibyl/internal/amm"
)

// Function selectors for the on-chain reads the pipeline performs.
const (
	SelectorGetReserves = "0902f1ac" // getReserves()
	SelectorToken0      = "0dfe1681" // token0()
	SelectorSlot0       = "3850c7bd" // slot0()
)

// Registry is the allow-list of pairs a node will price, keyed by the
// uppercased BASE-QUOTE identifier.
type Registry map[string]amm.PoolConfig

// Cronos mainnet token and pool addresses served by the default registry.
var (
	wcroAddress = common.HexToAddress("0x5C7F8A570d578ED84E63fdFA7b1eE72dEae1AE23")
	usdcAddress = common.HexToAddress("0xc21223249CA28397B4B6541dfFaEcC539BfF0c59")
	vvsAddress  = common.HexToAddress("0x2D03bECE6747ADC00E1a131BBA1469C15fD11e03")
	wbtcAddress = common.HexToAddress("0x062E66477Faf219F25D27dCED647BF57C3107d52")
	wethAddress = common.HexToAddress("0xe44Fd7fCb2b1581822D0c862B68222998a0c299a")
	usdtAddress = common.HexToAddress("0x66e428c3f67a68878562e79A0234c1F83c208770")

	wcroUsdcPair   = common.HexToAddress("0xE61Db569E231B3f5530168Aa2C9D50246525b6d6")
	vvsWcroPair    = common.HexToAddress("0xBf62c67EA509E86F07c8C69d0286C0636c50270B")
	wbtcWcroPair   = common.HexToAddress("0x8F09fff247B8FDb80461E5cf5E82dD1AE2ebd6d7")
	wcroEthPair    = common.HexToAddress("0xA111C17F8b8303280d3EB01BbCd61000AA7f39f9")
	usdtUsdcV3Pool = common.HexToAddress("0x0438a75009519f6284fa9e050e54d940302b2e93")
)

// DefaultRegistry returns the stock pair allow-list.
func DefaultRegistry() Registry {
	return Registry{
		"WCRO-USDC": {
			Pair: wcroUsdcPair, Base: wcroAddress, Quote: usdcAddress,
			BaseDecimals: 18, QuoteDecimals: 6, Kind: amm.ConstantProduct,
		},
		"VVS-WCRO": {
			Pair: vvsWcroPair, Base: vvsAddress, Quote: wcroAddress,
			BaseDecimals: 18, QuoteDecimals: 18, Kind: amm.ConstantProduct,
		},
		"WBTC-WCRO": {
			Pair: wbtcWcroPair, Base: wbtcAddress, Quote: wcroAddress,
			BaseDecimals: 8, QuoteDecimals: 18, Kind: amm.ConstantProduct,
		},
		"WCRO-ETH": {
			Pair: wcroEthPair, Base: wcroAddress, Quote: wethAddress,
			BaseDecimals: 18, QuoteDecimals: 18, Kind: amm.ConstantProduct,
		},
		"USDT-USDC": {
			Pair: usdtUsdcV3Pool, Base: usdtAddress, Quote: usdcAddress,
			BaseDecimals: 6, QuoteDecimals: 6, Kind: amm.ConcentratedLiquidity,
		},
	}
}
