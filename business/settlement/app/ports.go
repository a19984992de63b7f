// Package app contains the settlement use case and its ports.
package app

import (
	"context"
	"math/big"

	"github.com/fd1az/swapbox/business/settlement/domain"
)

// Settlement submits a buy order on-chain and waits for it to be mined.
type Settlement interface {
	BuyEth(ctx context.Context, order domain.BuyOrder) (*domain.Receipt, error)
}

// EthEstimator predicts the wei a token amount buys at current reserves.
type EthEstimator interface {
	ExpectedEth(ctx context.Context, tokens *big.Int) (*big.Int, error)
}
