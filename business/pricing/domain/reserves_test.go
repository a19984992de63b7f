package domain

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestReserves_JSON(t *testing.T) {
	r, err := NewReserves(bi("500000000000000000000000"), bi("250000000000000000000"))
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}

	want := `{"token_reserve":"500000000000000000000000","eth_reserve":"250000000000000000000"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var decoded Reserves
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.TokenReserve.Cmp(r.TokenReserve) != 0 || decoded.EthReserve.Cmp(r.EthReserve) != 0 {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestReserves_UnmarshalRejectsNonIntegers(t *testing.T) {
	for _, payload := range []string{
		`{"token_reserve":"1.5","eth_reserve":"1"}`,
		`{"token_reserve":"1","eth_reserve":"-1"}`,
		`{"token_reserve":"1"}`,
	} {
		var r Reserves
		if err := json.Unmarshal([]byte(payload), &r); err == nil {
			t.Errorf("expected error for %s", payload)
		}
	}
}

func TestReserves_Conversions(t *testing.T) {
	r, err := NewReserves(units(1000), units(1000))
	if err != nil {
		t.Fatal(err)
	}

	eth, err := r.EthForTokens(big.NewInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if eth.String() != "996006981039903216" {
		t.Errorf("EthForTokens(1) = %s", eth)
	}

	tokens, err := r.TokensForEth(eth)
	if err != nil {
		t.Fatal(err)
	}
	if tokens.Cmp(units(1)) < 0 {
		t.Errorf("TokensForEth = %s, want at least 1e18", tokens)
	}
}

func TestNewReserves_Copies(t *testing.T) {
	token := big.NewInt(10)
	r, err := NewReserves(token, big.NewInt(20))
	if err != nil {
		t.Fatal(err)
	}
	token.SetInt64(0)
	if r.TokenReserve.Int64() != 10 {
		t.Error("reserves share memory with caller")
	}
}
