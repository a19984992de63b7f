// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/fd1az/swapbox/business/pricing/domain"
	"github.com/fd1az/swapbox/internal/asset"
	"github.com/fd1az/swapbox/internal/logger"
)

// PricingService prices the ETH / token pair from the live pool.
type PricingService struct {
	oracle ReserveOracle
	rate   domain.FeeRate
	token  *asset.Asset
	logger logger.LoggerInterface
}

// NewPricingService creates a new PricingService.
func NewPricingService(oracle ReserveOracle, rate domain.FeeRate, token *asset.Asset, log logger.LoggerInterface) *PricingService {
	return &PricingService{
		oracle: oracle,
		rate:   rate,
		token:  token,
		logger: log,
	}
}

// FeeRate returns the operator fee applied to quotes.
func (s *PricingService) FeeRate() domain.FeeRate {
	return s.rate
}

// Snapshot returns the pool reserves as read, without validation.
// An empty or drained pool is reported as is.
func (s *PricingService) Snapshot(ctx context.Context) (domain.Reserves, error) {
	return s.oracle.Reserves(ctx)
}

// Reserves returns a validated pool snapshot.
func (s *PricingService) Reserves(ctx context.Context) (domain.Reserves, error) {
	r, err := s.oracle.Reserves(ctx)
	if err != nil {
		return domain.Reserves{}, err
	}
	if err := r.Validate(); err != nil {
		return domain.Reserves{}, err
	}
	return r, nil
}

// Quote returns the kiosk's buy and sell price for one ETH.
func (s *PricingService) Quote(ctx context.Context) (domain.Quote, error) {
	one := asset.NewAmountFromUnits(asset.ETH, big.NewInt(1))

	buy, sell, err := s.oracle.RawPrice(ctx, one.Raw())
	if err != nil {
		return domain.Quote{}, err
	}

	q, err := domain.FetchQuote(asset.NewAmount(s.token, buy), asset.NewAmount(s.token, sell), s.rate)
	if err != nil {
		return domain.Quote{}, err
	}

	s.logger.Debug(ctx, "quote",
		"price_for", one.String(),
		"buys", q.BuyPrice.StringFixed(4),
		"sells_at", q.SellPrice.StringFixed(4),
		"spread_bps", q.Spread().BasisPoints.StringFixed(2),
	)

	return q, nil
}

// ExpectedEth returns the wei the pool would pay for tokens whole units of
// the pool token, before the settlement contract's own fee.
func (s *PricingService) ExpectedEth(ctx context.Context, tokens *big.Int) (*big.Int, error) {
	r, err := s.Reserves(ctx)
	if err != nil {
		return nil, err
	}
	return r.EthForTokens(tokens)
}
