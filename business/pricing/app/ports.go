// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/fd1az/swapbox/business/pricing/domain"
)

// ReserveOracle reads the AMM pool through the price feed contract.
type ReserveOracle interface {
	// Reserves returns the current token and ETH reserves, in wei.
	Reserves(ctx context.Context) (domain.Reserves, error)

	// RawPrice returns the exchange buy and sell price, in token wei, for
	// amount wei of ETH. No operator fee is applied.
	RawPrice(ctx context.Context, amount *big.Int) (buy, sell *big.Int, err error)
}
