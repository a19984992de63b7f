// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swapbox/business/blockchain/domain"
)

// NodeHealthOracle reports the connectivity and sync state of the node.
type NodeHealthOracle interface {
	// Status polls the node. Unreachable nodes are reported through
	// IsConnected; an error means ctx ended first.
	Status(ctx context.Context) (domain.NodeStatus, error)

	// Accounts returns the accounts managed by the node.
	Accounts(ctx context.Context) ([]common.Address, error)
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// GetGasTipCap retrieves the suggested EIP-1559 tip.
	GetGasTipCap(ctx context.Context) (*big.Int, error)

	// EstimateGas estimates the gas needed for a transaction.
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error)

	// GetGasEstimate combines the gas price with a gas limit estimate,
	// falling back to the configured default limit.
	GetGasEstimate(ctx context.Context, from, to common.Address, data []byte) (*domain.GasEstimate, error)
}
