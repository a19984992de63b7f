package asset

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// WeiDecimals is the scale of the wire unit.
const WeiDecimals = 18

// WeiPerUnit is 10^18.
var WeiPerUnit = pow10(WeiDecimals)

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ToWei scales a whole-unit amount to wei.
func ToWei(units *big.Int) *big.Int {
	return new(big.Int).Mul(units, WeiPerUnit)
}

// FromWei converts wei to whole units without losing precision.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -WeiDecimals)
}

// DivRound divides x by d rounding half up. Both operands must be
// non-negative and d non-zero.
func DivRound(x, d *big.Int) *big.Int {
	if d.Sign() == 0 {
		panic(ErrDivisionByZero)
	}

	q, r := new(big.Int).QuoRem(x, d, new(big.Int))
	// 2r >= d means the fraction is at least .5
	if r.Lsh(r, 1).Cmp(d) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// ParseUint parses a base-10 non-negative integer string.
func ParseUint(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, false
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	return v, ok
}
