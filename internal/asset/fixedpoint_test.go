package asset

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToWeiFromWei_RoundTrip(t *testing.T) {
	for _, units := range []int64{0, 1, 20, 1000, 123456789} {
		w := ToWei(big.NewInt(units))

		back := FromWei(w)
		if !back.Equal(decimal.NewFromInt(units)) {
			t.Errorf("FromWei(ToWei(%d)) = %s", units, back)
		}

		q, r := new(big.Int).QuoRem(w, WeiPerUnit, new(big.Int))
		if q.Int64() != units || r.Sign() != 0 {
			t.Errorf("ToWei(%d) = %s is not an exact multiple of 1e18", units, w)
		}
	}

	if got := FromWei(big.NewInt(1)); got.String() != "0.000000000000000001" {
		t.Errorf("FromWei(1) = %s", got)
	}
	if !FromWei(nil).IsZero() {
		t.Error("FromWei(nil) should be zero")
	}
}

func TestDivRound(t *testing.T) {
	tests := []struct {
		x, d, want int64
	}{
		{x: 15, d: 10, want: 2},
		{x: 14, d: 10, want: 1},
		{x: 25, d: 10, want: 3},
		{x: 0, d: 7, want: 0},
		{x: 7, d: 7, want: 1},
		{x: 3, d: 2, want: 2},
		{x: 1, d: 3, want: 0},
		{x: 2, d: 3, want: 1},
	}

	for _, tt := range tests {
		got := DivRound(big.NewInt(tt.x), big.NewInt(tt.d))
		if got.Int64() != tt.want {
			t.Errorf("DivRound(%d, %d) = %s, want %d", tt.x, tt.d, got, tt.want)
		}
	}
}

func TestDivRound_DoesNotMutateOperands(t *testing.T) {
	x, d := big.NewInt(15), big.NewInt(10)
	DivRound(x, d)
	if x.Int64() != 15 || d.Int64() != 10 {
		t.Errorf("operands mutated: x=%s d=%s", x, d)
	}
}

func TestParseUint(t *testing.T) {
	valid := map[string]string{
		"0":                           "0",
		"20":                          "20",
		"115792089237316195423570985": "115792089237316195423570985",
	}
	for in, want := range valid {
		v, ok := ParseUint(in)
		if !ok || v.String() != want {
			t.Errorf("ParseUint(%q) = %v, %v", in, v, ok)
		}
	}

	for _, in := range []string{"", "-1", "+1", "1.5", "1e18", "0x10", " 1", "abc"} {
		if _, ok := ParseUint(in); ok {
			t.Errorf("ParseUint(%q) should fail", in)
		}
	}
}
