package domain

import (
	"fmt"
	"math/big"

	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/asset"
)

// The pool keeps 0.3% of every input: 997/1000.
var (
	ammFeeNumerator   = big.NewInt(997)
	ammFeeDenominator = big.NewInt(1000)
)

// InputPrice returns the wei received for inputAmount whole units of the
// input asset. Reserves are in wei.
func InputPrice(inputAmount, inputReserve, outputReserve *big.Int) (*big.Int, error) {
	if inputAmount == nil {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("missing input amount"))
	}
	return InputPriceWei(asset.ToWei(inputAmount), inputReserve, outputReserve)
}

// InputPriceWei is InputPrice for an input already expressed in wei.
// The result is rounded down.
func InputPriceWei(inputWei, inputReserve, outputReserve *big.Int) (*big.Int, error) {
	if err := checkReserves(inputReserve, outputReserve); err != nil {
		return nil, err
	}
	if inputWei == nil {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("missing input amount"))
	}
	if inputWei.Sign() < 0 {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("negative input amount"))
	}

	effective := new(big.Int).Mul(inputWei, ammFeeNumerator)
	numerator := new(big.Int).Mul(effective, outputReserve)
	denominator := new(big.Int).Mul(inputReserve, ammFeeDenominator)
	denominator.Add(denominator, effective)

	return numerator.Quo(numerator, denominator), nil
}

// OutputPrice returns the input, in wei, required to take outputAmount wei
// out of the pool. The result is rounded up.
func OutputPrice(outputReserve, outputAmount, inputReserve *big.Int) (*big.Int, error) {
	if err := checkReserves(inputReserve, outputReserve); err != nil {
		return nil, err
	}
	if outputAmount == nil {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("missing output amount"))
	}
	if outputAmount.Sign() < 0 {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("negative output amount"))
	}
	if outputAmount.Cmp(outputReserve) >= 0 {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("want %s of %s", outputAmount, outputReserve)))
	}

	numerator := new(big.Int).Mul(outputAmount, inputReserve)
	numerator.Mul(numerator, ammFeeDenominator)
	denominator := new(big.Int).Sub(outputReserve, outputAmount)
	denominator.Mul(denominator, ammFeeNumerator)

	in := numerator.Quo(numerator, denominator)
	return in.Add(in, big.NewInt(1)), nil
}

func checkReserves(inputReserve, outputReserve *big.Int) error {
	if inputReserve == nil || outputReserve == nil || inputReserve.Sign() <= 0 || outputReserve.Sign() <= 0 {
		return apperror.New(apperror.CodeInvalidReserves,
			apperror.WithContext(fmt.Sprintf("input=%v output=%v", inputReserve, outputReserve)))
	}
	return nil
}
