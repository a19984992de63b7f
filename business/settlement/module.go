// Package settlement implements the settlement bounded context: buy
// orders submitted to the Atola contract.
package settlement

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	blockchainDI "github.com/fd1az/swapbox/business/blockchain/di"
	pricingDI "github.com/fd1az/swapbox/business/pricing/di"
	"github.com/fd1az/swapbox/business/settlement/app"
	settlementDI "github.com/fd1az/swapbox/business/settlement/di"
	"github.com/fd1az/swapbox/business/settlement/infra/atola"
	"github.com/fd1az/swapbox/internal/config"
	"github.com/fd1az/swapbox/internal/di"
	"github.com/fd1az/swapbox/internal/logger"
	"github.com/fd1az/swapbox/internal/monolith"
)

// Module implements the settlement bounded context.
type Module struct{}

// RegisterServices registers all settlement services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Atola client (private)
	di.RegisterToken(c, settlementDI.AtolaClient, func(sr di.ServiceRegistry) *atola.Client {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		rpcClient := sr.Get("rpcClient").(*rpc.Client)

		atolaCfg := atola.Config{
			Address:      cfg.Contracts.AtolaAddressHex(),
			ChainID:      cfg.Ethereum.ChainID,
			GasLimit:     cfg.Settlement.GasLimit,
			PollInterval: cfg.Settlement.ReceiptPollInterval,
		}

		var gas atola.GasOracle
		if cfg.Settlement.LocalSigning() {
			key, err := crypto.HexToECDSA(cfg.Settlement.PrivateKeyHex())
			if err != nil {
				panic("invalid settlement private key: " + err.Error())
			}
			atolaCfg.PrivateKey = key
			gas = blockchainDI.GetGasOracle(sr)
		}

		client, err := atola.NewClient(ethClient, rpcClient, gas, atolaCfg, log)
		if err != nil {
			panic("failed to create atola client: " + err.Error())
		}
		return client
	})

	// Register SettlementService (public - used by the broker)
	di.RegisterToken(c, settlementDI.SettlementService, func(sr di.ServiceRegistry) *app.SettlementService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := settlementDI.GetAtolaClient(sr)

		var resolve app.MachineResolver
		if client.Mode() == atola.ModeLocal {
			resolve = app.StaticMachine(client.Signer())
		} else {
			chain := blockchainDI.GetBlockchainService(sr)
			configured := common.HexToAddress(cfg.Settlement.MachineAddress)
			resolve = func(ctx context.Context) (common.Address, error) {
				return chain.MachineAccount(ctx, configured)
			}
		}

		var estimator app.EthEstimator
		if cfg.Broker.SlippagePrecheck {
			estimator = pricingDI.GetPricingService(sr)
		}

		return app.NewSettlementService(client, estimator, resolve, log)
	})

	return nil
}

// Startup resolves the machine account so misconfiguration shows up early.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	svc := settlementDI.GetSettlementService(mono.Services())
	client := settlementDI.GetAtolaClient(mono.Services())

	machine, err := svc.Machine(ctx)
	if err != nil {
		// resolved again on the first order
		log.Warn(ctx, "machine account not resolved", "error", err)
	}

	log.Info(ctx, "settlement module started",
		"contract", cfg.Contracts.AtolaAddressHex().Hex(),
		"mode", client.Mode(),
		"machine", machine.Hex(),
		"slippage_precheck", cfg.Broker.SlippagePrecheck,
	)
	return nil
}
