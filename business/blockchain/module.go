// Package blockchain implements the blockchain bounded context: node
// health and gas pricing.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/swapbox/business/blockchain/app"
	blockchainDI "github.com/fd1az/swapbox/business/blockchain/di"
	"github.com/fd1az/swapbox/business/blockchain/infra/ethereum"
	"github.com/fd1az/swapbox/internal/config"
	"github.com/fd1az/swapbox/internal/di"
	"github.com/fd1az/swapbox/internal/logger"
	"github.com/fd1az/swapbox/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register NodeHealthOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.NodeHealthOracle, func(sr di.ServiceRegistry) app.NodeHealthOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		rpcClient := sr.Get("rpcClient").(*rpc.Client)

		monitor, err := ethereum.NewNodeMonitor(ethClient, rpcClient, cfg.Ethereum.RPCTimeout, log)
		if err != nil {
			panic("failed to create node monitor: " + err.Error())
		}
		return monitor
	})

	// Register GasOracle (public - used by local-key settlement)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		oracleCfg := ethereum.DefaultGasOracleConfig()
		if cfg.Settlement.GasLimit > 0 {
			oracleCfg.DefaultGas = cfg.Settlement.GasLimit
		}
		oracle, err := ethereum.NewGasOracle(ethClient, oracleCfg, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		monitor := blockchainDI.GetNodeHealthOracle(sr)
		oracle := blockchainDI.GetGasOracle(sr)
		return app.NewBlockchainService(monitor, oracle)
	})

	return nil
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := blockchainDI.GetBlockchainService(mono.Services())

	status, err := svc.Status(ctx)
	if err != nil {
		return err
	}
	if !status.Ready() {
		// orders are dropped until the node catches up
		log.Warn(ctx, "node not ready",
			"is_connected", status.IsConnected,
			"is_syncing", status.IsSyncing,
			"current_block", status.CurrentBlock,
			"highest_block", status.HighestBlock,
		)
	}

	log.Info(ctx, "blockchain module started", "current_block", status.CurrentBlock, "peers", status.PeerCount)
	return nil
}
