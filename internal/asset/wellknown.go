package asset

import "github.com/ethereum/go-ethereum/common"

// AddrXCHFEthereum is the CryptoFranc token on Ethereum mainnet.
var AddrXCHFEthereum = common.HexToAddress("0xB4272071eCAdd69d933AdcD19cA99fe80664fc08")

var (
	// ETH is the asset delivered to buyers.
	ETH = NewAsset("ETH", "Ethereum", 18, common.Address{})
	// XCHF is the fiat-backed stablecoin the kiosk accepts.
	XCHF = NewAsset("XCHF", "CryptoFranc", 18, AddrXCHFEthereum)
)

// NewToken creates an 18-decimal token asset at addr, used when the pool
// token is configured to something other than XCHF.
func NewToken(symbol string, addr common.Address) *Asset {
	return NewAsset(symbol, symbol, 18, addr)
}
