// Package asset provides the fixed-point model for on-chain amounts.
// Values are kept as big.Int in the smallest unit (wei); decimal.Decimal is
// only used at the display boundary.
package asset

import "github.com/ethereum/go-ethereum/common"

// Asset is the metadata of a currency handled by the kiosk.
type Asset struct {
	symbol   string
	name     string
	decimals uint8
	address  common.Address // zero for the native coin
}

// NewAsset creates a new Asset.
func NewAsset(symbol, name string, decimals uint8, address common.Address) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	return &Asset{
		symbol:   symbol,
		name:     name,
		decimals: decimals,
		address:  address,
	}
}

// Symbol returns the ticker symbol (e.g., "ETH", "XCHF").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// Address returns the token contract address (zero for the native coin).
func (a *Asset) Address() common.Address {
	return a.address
}

// IsNative returns true for the chain's native coin.
func (a *Asset) IsNative() bool {
	return a.address == (common.Address{})
}

// String returns the symbol.
func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two assets by symbol and address.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.symbol == other.symbol && a.address == other.address
}
