// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/swapbox/business/pricing/app"
	"github.com/fd1az/swapbox/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Private dependency tokens - internal to pricing module
var (
	ReserveOracle = di.NewToken[app.ReserveOracle]("pricing:reserveOracle")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetReserveOracle(c di.ServiceRegistry) app.ReserveOracle {
	return di.GetToken(c, ReserveOracle)
}
