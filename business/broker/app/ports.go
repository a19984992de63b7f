// Package app contains the order broker, the periodic publisher and the
// ports they depend on.
package app

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/swapbox/business/blockchain/domain"
	pricingDomain "github.com/fd1az/swapbox/business/pricing/domain"
	settlementDomain "github.com/fd1az/swapbox/business/settlement/domain"
)

// ErrTransportClosed is returned by Receive once the transport is closed.
var ErrTransportClosed = errors.New("transport closed")

// Request is one inbound message awaiting at most one reply.
type Request interface {
	Payload() []byte
	Reply(ctx context.Context, payload []byte) error
}

// Replier yields inbound requests one at a time.
type Replier interface {
	Receive(ctx context.Context) (Request, error)
	Close() error
}

// Publisher broadcasts a payload under a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// NodeHealthOracle reports whether the node can take transactions.
type NodeHealthOracle interface {
	Status(ctx context.Context) (blockchainDomain.NodeStatus, error)
}

// Settlement settles buy orders for the machine account.
type Settlement interface {
	BuyEth(ctx context.Context, tokens, minEth *big.Int, destination common.Address) (*settlementDomain.Receipt, error)
}

// PriceSource provides reserves and quotes for the price ticker.
type PriceSource interface {
	Snapshot(ctx context.Context) (pricingDomain.Reserves, error)
	Quote(ctx context.Context) (pricingDomain.Quote, error)
}

// Channel bundles the endpoints of one messaging transport.
type Channel struct {
	Name            string
	Replier         Replier
	PricePublisher  Publisher
	StatusPublisher Publisher
	Healthy         func(ctx context.Context) (bool, string)
	Close           func() error
}
