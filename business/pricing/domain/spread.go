package domain

import "github.com/shopspring/decimal"

// Spread represents the distance between the kiosk's buy and sell price.
type Spread struct {
	Buy         decimal.Decimal
	Sell        decimal.Decimal
	Absolute    decimal.Decimal // Buy - Sell
	BasisPoints decimal.Decimal // (Buy - Sell) / Sell * 10000
}

// CalculateSpread computes the spread between a buy and a sell price.
func CalculateSpread(buy, sell decimal.Decimal) Spread {
	absolute := buy.Sub(sell)
	bps := decimal.Zero
	if !sell.IsZero() {
		bps = absolute.Div(sell).Mul(decimal.NewFromInt(BasisPoints))
	}

	return Spread{
		Buy:         buy,
		Sell:        sell,
		Absolute:    absolute,
		BasisPoints: bps,
	}
}
