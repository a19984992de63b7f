// Package domain contains the pricing engine of the swap-box: the operator
// fee, quote assembly and the constant-product AMM formulas.
package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/asset"
)

// BasisPoints is the fee denominator.
const BasisPoints = 10000

// DefaultFeeRate is the operator fee (1.2%). The settlement contract keeps
// its own fee; this value is a local copy and can drift from it.
var DefaultFeeRate = FeeRate{Numerator: 120, Denominator: BasisPoints}

// FeeRate is a fraction applied to raw exchange prices.
type FeeRate struct {
	Numerator   int64
	Denominator int64
}

// NewFeeRateBps builds a FeeRate from basis points.
func NewFeeRateBps(bps int64) (FeeRate, error) {
	r := FeeRate{Numerator: bps, Denominator: BasisPoints}
	if err := r.Validate(); err != nil {
		return FeeRate{}, err
	}
	return r, nil
}

// Validate requires 0 <= Numerator < Denominator.
func (r FeeRate) Validate() error {
	if r.Denominator <= 0 || r.Numerator < 0 || r.Numerator >= r.Denominator {
		return apperror.New(apperror.CodeInvalidFeeRate,
			apperror.WithContext(fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)))
	}
	return nil
}

// ComputeFee returns amount*rate rounded half up.
func (r FeeRate) ComputeFee(amount asset.Amount) (asset.Amount, error) {
	if err := r.Validate(); err != nil {
		return asset.Amount{}, err
	}
	return amount.MulDivRound(big.NewInt(r.Numerator), big.NewInt(r.Denominator))
}

// Decimal returns the rate as a fraction, e.g. 0.012.
func (r FeeRate) Decimal() decimal.Decimal {
	if r.Denominator == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(r.Numerator).Div(decimal.NewFromInt(r.Denominator))
}

// String returns the rate as a percentage (e.g. "1.2%").
func (r FeeRate) String() string {
	return r.Decimal().Shift(2).String() + "%"
}
