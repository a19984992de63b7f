// Package di contains dependency injection tokens for the settlement context.
package di

import (
	"github.com/fd1az/swapbox/business/settlement/app"
	"github.com/fd1az/swapbox/business/settlement/infra/atola"
	"github.com/fd1az/swapbox/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SettlementService = di.NewToken[*app.SettlementService]("settlement.SettlementService")
)

// Private dependency tokens - internal to settlement module
var (
	AtolaClient = di.NewToken[*atola.Client]("settlement:atolaClient")
)

// Helper functions for type-safe access
func GetSettlementService(c di.ServiceRegistry) *app.SettlementService {
	return di.GetToken(c, SettlementService)
}

func GetAtolaClient(c di.ServiceRegistry) *atola.Client {
	return di.GetToken(c, AtolaClient)
}
