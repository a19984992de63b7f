package domain

import (
	"github.com/fd1az/swapbox/internal/asset"
)

// Quote is the kiosk's buy and sell price for exactly one ETH, in the
// smallest unit of the pool token.
type Quote struct {
	BuyPrice  asset.Amount
	SellPrice asset.Amount
}

// FetchQuote widens the raw exchange prices by the operator fee: added on
// the buy side, subtracted on the sell side.
func FetchQuote(rawBuy, rawSell asset.Amount, rate FeeRate) (Quote, error) {
	buyFee, err := rate.ComputeFee(rawBuy)
	if err != nil {
		return Quote{}, err
	}
	sellFee, err := rate.ComputeFee(rawSell)
	if err != nil {
		return Quote{}, err
	}

	buy, err := rawBuy.Add(buyFee)
	if err != nil {
		return Quote{}, err
	}
	sell, err := rawSell.Sub(sellFee)
	if err != nil {
		return Quote{}, err
	}

	return Quote{BuyPrice: buy, SellPrice: sell}, nil
}

// Spread returns the distance between the buy and sell price.
func (q Quote) Spread() Spread {
	return CalculateSpread(q.BuyPrice.ToDecimal(), q.SellPrice.ToDecimal())
}
