// Package di contains dependency injection tokens for the broker context.
package di

import (
	"github.com/fd1az/swapbox/business/broker/app"
	"github.com/fd1az/swapbox/internal/di"
)

// Public service tokens - exposed to main
var (
	Broker  = di.NewToken[*app.Broker]("broker.Broker")
	Ticker  = di.NewToken[*app.Ticker]("broker.Ticker")
	Channel = di.NewToken[*app.Channel]("broker.Channel")
)

// Helper functions for type-safe access
func GetBroker(c di.ServiceRegistry) *app.Broker {
	return di.GetToken(c, Broker)
}

func GetTicker(c di.ServiceRegistry) *app.Ticker {
	return di.GetToken(c, Ticker)
}

func GetChannel(c di.ServiceRegistry) *app.Channel {
	return di.GetToken(c, Channel)
}
