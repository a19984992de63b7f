// Package pricing implements the pricing bounded context: the operator
// fee, quotes and AMM reserve reads.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/swapbox/business/pricing/app"
	pricingDI "github.com/fd1az/swapbox/business/pricing/di"
	"github.com/fd1az/swapbox/business/pricing/domain"
	"github.com/fd1az/swapbox/business/pricing/infra/pricefeed"
	"github.com/fd1az/swapbox/internal/asset"
	"github.com/fd1az/swapbox/internal/config"
	"github.com/fd1az/swapbox/internal/di"
	"github.com/fd1az/swapbox/internal/logger"
	"github.com/fd1az/swapbox/internal/monolith"
	"github.com/fd1az/swapbox/internal/ratelimit"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register ReserveOracle (PriceFeed contract) - private dependency
	di.RegisterToken(c, pricingDI.ReserveOracle, func(sr di.ServiceRegistry) app.ReserveOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		limiter := sr.Get("rpcLimiter").(*ratelimit.Limiter)

		client, err := pricefeed.NewClient(ethClient, pricefeed.Config{
			Address:     cfg.Contracts.PriceFeedAddressHex(),
			CallTimeout: cfg.Ethereum.RPCTimeout,
			Limiter:     limiter,
		}, log)
		if err != nil {
			panic("failed to create price feed client: " + err.Error())
		}
		return client
	})

	// Register PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		rate, err := domain.NewFeeRateBps(cfg.Pricing.OperatorFeeBps)
		if err != nil {
			panic("invalid operator fee: " + err.Error())
		}
		token := asset.XCHF
		if addr := cfg.Contracts.TokenAddressHex(); addr != asset.AddrXCHFEthereum {
			token = asset.NewToken("TOKEN", addr)
		}

		return app.NewPricingService(pricingDI.GetReserveOracle(sr), rate, token, log)
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := pricingDI.GetPricingService(mono.Services())

	// the contract applies its own fee; this one is only used for quotes
	log.Warn(ctx, "operator fee is configured locally and may differ from the on-chain fee",
		"operator_fee", svc.FeeRate().String())

	if _, err := svc.Reserves(ctx); err != nil {
		log.Warn(ctx, "initial reserve read failed, ticker will retry", "error", err)
	}

	log.Info(ctx, "pricing module started")
	return nil
}
