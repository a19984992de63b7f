// Package domain contains the settlement value objects.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swapbox/internal/apperror"
)

// BuyOrder asks the settlement contract to deliver ETH to Destination in
// exchange for TokenAmount whole tokens deposited at the machine.
type BuyOrder struct {
	TokenAmount *big.Int
	MinEth      *big.Int // wei
	Destination common.Address
	Machine     common.Address
}

// NewBuyOrder copies the amounts and validates the order.
func NewBuyOrder(tokens, minEth *big.Int, destination, machine common.Address) (BuyOrder, error) {
	o := BuyOrder{
		Destination: destination,
		Machine:     machine,
	}
	if tokens != nil {
		o.TokenAmount = new(big.Int).Set(tokens)
	}
	if minEth != nil {
		o.MinEth = new(big.Int).Set(minEth)
	}
	if err := o.Validate(); err != nil {
		return BuyOrder{}, err
	}
	return o, nil
}

// Validate checks the order can be submitted as is.
func (o BuyOrder) Validate() error {
	switch {
	case o.TokenAmount == nil || o.TokenAmount.Sign() <= 0:
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("token amount must be positive"))
	case o.MinEth == nil || o.MinEth.Sign() < 0:
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("min eth must be non-negative"))
	case o.Destination == (common.Address{}):
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("destination is the zero address"))
	case o.Machine == (common.Address{}):
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("machine address not set"))
	}
	return nil
}

func (o BuyOrder) String() string {
	return fmt.Sprintf("buy %s tokens for >= %s wei to %s", o.TokenAmount, o.MinEth, o.Destination.Hex())
}
