// Package broker implements the order broker bounded context: the order
// protocol, periodic publications and their messaging transports.
package broker

import (
	"context"
	"fmt"

	blockchainDI "github.com/fd1az/swapbox/business/blockchain/di"
	"github.com/fd1az/swapbox/business/broker/app"
	brokerDI "github.com/fd1az/swapbox/business/broker/di"
	"github.com/fd1az/swapbox/business/broker/infra/websocket"
	"github.com/fd1az/swapbox/business/broker/infra/zmq"
	pricingDI "github.com/fd1az/swapbox/business/pricing/di"
	settlementDI "github.com/fd1az/swapbox/business/settlement/di"
	"github.com/fd1az/swapbox/internal/config"
	"github.com/fd1az/swapbox/internal/di"
	"github.com/fd1az/swapbox/internal/logger"
	"github.com/fd1az/swapbox/internal/monolith"
)

// Module implements the broker bounded context.
type Module struct{}

// RegisterServices registers all broker services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Channel (public - main closes it and reports its health)
	di.RegisterToken(c, brokerDI.Channel, func(sr di.ServiceRegistry) *app.Channel {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		ch, err := newChannel(cfg, log)
		if err != nil {
			panic("failed to open messaging transport: " + err.Error())
		}
		return ch
	})

	// Register Broker (public)
	di.RegisterToken(c, brokerDI.Broker, func(sr di.ServiceRegistry) *app.Broker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		b, err := app.NewBroker(
			brokerDI.GetChannel(sr).Replier,
			blockchainDI.GetBlockchainService(sr),
			settlementDI.GetSettlementService(sr),
			app.Config{
				HealthTimeout:     cfg.Broker.HealthTimeout,
				SettlementTimeout: cfg.Broker.SettlementTimeout,
			},
			log,
		)
		if err != nil {
			panic("failed to create broker: " + err.Error())
		}
		return b
	})

	// Register Ticker (public)
	di.RegisterToken(c, brokerDI.Ticker, func(sr di.ServiceRegistry) *app.Ticker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ch := brokerDI.GetChannel(sr)

		t, err := app.NewTicker(
			pricingDI.GetPricingService(sr),
			blockchainDI.GetBlockchainService(sr),
			ch.PricePublisher,
			ch.StatusPublisher,
			app.TickerConfig{
				PriceInterval:  cfg.Pricing.TickerInterval,
				StatusInterval: cfg.Broker.StatusInterval,
			},
			log,
		)
		if err != nil {
			panic("failed to create ticker: " + err.Error())
		}
		return t
	})

	return nil
}

// newChannel opens the transport selected by messaging.transport.
func newChannel(cfg *config.Config, log logger.LoggerInterface) (*app.Channel, error) {
	switch cfg.Messaging.Transport {
	case config.TransportWebSocket:
		srv := websocket.NewServer(cfg.Messaging.WebSocketAddr, log)
		if err := srv.Start(); err != nil {
			return nil, err
		}
		return &app.Channel{
			Name:            config.TransportWebSocket,
			Replier:         srv,
			PricePublisher:  srv,
			StatusPublisher: srv,
			Healthy:         srv.Healthy,
			Close:           srv.Close,
		}, nil

	case config.TransportZMQ, "":
		tr, err := zmq.Listen(context.Background(), zmq.Config{
			PubPriceURL:  cfg.Messaging.URLPubPrice,
			PubStatusURL: cfg.Messaging.URLPubStatus,
			ReplierURL:   cfg.Messaging.URLReplier,
		}, log)
		if err != nil {
			return nil, err
		}
		return &app.Channel{
			Name:            config.TransportZMQ,
			Replier:         tr.Replier(),
			PricePublisher:  tr.PricePublisher(),
			StatusPublisher: tr.StatusPublisher(),
			Healthy:         tr.Healthy,
			Close:           tr.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown messaging transport %q", cfg.Messaging.Transport)
}

// Startup opens the transport and builds the broker and ticker.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	ch := brokerDI.GetChannel(mono.Services())
	brokerDI.GetBroker(mono.Services())
	brokerDI.GetTicker(mono.Services())

	log.Info(ctx, "broker module started", "transport", ch.Name)
	return nil
}
