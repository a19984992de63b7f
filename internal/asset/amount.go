package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNilRaw          = errors.New("asset: nil raw value")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: cannot operate on different assets")
	ErrNegativeResult  = errors.New("asset: operation would result in negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
	ErrDivisionByZero  = errors.New("asset: division by zero")
)

// Amount is a non-negative quantity of one asset, held in its smallest unit.
// Values are never mutated after construction.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount wraps a smallest-unit value. It panics on a nil asset, a nil
// value or a negative value; callers validate untrusted input first.
func NewAmount(a *Asset, raw *big.Int) Amount {
	switch {
	case a == nil:
		panic(ErrNilAsset)
	case raw == nil:
		panic(ErrNilRaw)
	case raw.Sign() < 0:
		panic(ErrNegativeAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}
}

func Zero(a *Asset) Amount {
	return NewAmount(a, new(big.Int))
}

// NewAmountFromUnits scales a whole-unit quantity (20 XCHF) by the asset's
// decimals.
func NewAmountFromUnits(a *Asset, units *big.Int) Amount {
	if a == nil {
		panic(ErrNilAsset)
	}
	return NewAmount(a, new(big.Int).Mul(units, pow10(a.Decimals())))
}

// Raw returns a copy of the smallest-unit value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount) Asset() *Asset { return a.asset }

func (a Amount) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.sameAsset(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.asset, new(big.Int).Add(a.raw, b.raw)), nil
}

// Sub fails with ErrNegativeResult when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.sameAsset(b); err != nil {
		return Amount{}, err
	}
	if a.raw.Cmp(b.raw) < 0 {
		return Amount{}, ErrNegativeResult
	}
	return NewAmount(a.asset, new(big.Int).Sub(a.raw, b.raw)), nil
}

// MulDivRound returns a*num/den rounded half up. It is how basis-point
// fees are taken from an amount.
func (a Amount) MulDivRound(num, den *big.Int) (Amount, error) {
	if den.Sign() == 0 {
		return Amount{}, ErrDivisionByZero
	}
	if num.Sign() < 0 || den.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}
	product := new(big.Int).Mul(a.Raw(), num)
	return NewAmount(a.asset, DivRound(product, den)), nil
}

// Cmp orders two amounts of the same asset like big.Int.Cmp.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.sameAsset(b); err != nil {
		return 0, err
	}
	return a.raw.Cmp(b.raw), nil
}

// Equals reports same asset and same value.
func (a Amount) Equals(b Amount) bool {
	return a.asset.Equals(b.asset) && a.Raw().Cmp(b.Raw()) == 0
}

func (a Amount) GreaterThan(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	return c > 0, err
}

func (a Amount) LessThan(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	return c < 0, err
}

// ToDecimal is for display and logs only. Arithmetic stays on big.Int.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// ToFloat64 feeds metric gauges.
func (a Amount) ToFloat64() float64 {
	f, _ := a.ToDecimal().Float64()
	return f
}

// ParseDecimal converts human units (1.5 ETH) to an Amount. Values finer
// than the asset's smallest unit are rejected rather than truncated.
func ParseDecimal(a *Asset, d decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(int32(a.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, ErrTooManyDecimals
	}
	return NewAmount(a, scaled.BigInt()), nil
}

func ParseString(a *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	return ParseDecimal(a, d)
}

// String renders "1.5 ETH".
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return a.ToDecimal().String() + " " + a.asset.Symbol()
}

func (a Amount) StringFixed(places int32) string {
	if a.asset == nil {
		return "0 ???"
	}
	return a.ToDecimal().StringFixed(places) + " " + a.asset.Symbol()
}

// RawString returns the smallest-unit integer in base 10, as sent over the wire.
func (a Amount) RawString() string {
	return a.Raw().String()
}

func (a Amount) sameAsset(b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if !a.asset.Equals(b.asset) {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset.Symbol(), b.asset.Symbol())
	}
	return nil
}
