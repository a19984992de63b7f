package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/swapbox/internal/asset"
)

// Receipt is the outcome of a mined, successful buy settlement.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Recipient   common.Address
	TokenAmount *big.Int
	EthAmount   *big.Int // wei delivered
}

// Delivered is the delivered ETH in wei as a decimal string, the form
// replied to the requester.
func (r *Receipt) Delivered() string {
	if r == nil || r.EthAmount == nil {
		return "0"
	}
	return r.EthAmount.String()
}

// DeliveredEth is the delivered amount in ETH for logs.
func (r *Receipt) DeliveredEth() decimal.Decimal {
	if r == nil || r.EthAmount == nil {
		return decimal.Zero
	}
	return asset.FromWei(r.EthAmount)
}
