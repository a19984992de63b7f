// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/swapbox/business/blockchain/app"
	"github.com/fd1az/swapbox/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
	GasOracle         = di.NewToken[app.GasOracle]("blockchain.GasOracle")
)

// Private dependency tokens - internal to blockchain module
var (
	NodeHealthOracle = di.NewToken[app.NodeHealthOracle]("blockchain:nodeHealthOracle")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetNodeHealthOracle(c di.ServiceRegistry) app.NodeHealthOracle {
	return di.GetToken(c, NodeHealthOracle)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
