package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swapbox/internal/asset"
)

func TestFetchQuote(t *testing.T) {
	q, err := FetchQuote(xchf("250000000000000000000"), xchf("248000000000000000000"), DefaultFeeRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := q.BuyPrice.RawString(); got != "253000000000000000000" {
		t.Errorf("BuyPrice = %s, want 253e18", got)
	}
	if got := q.SellPrice.RawString(); got != "245024000000000000000" {
		t.Errorf("SellPrice = %s, want 245.024e18", got)
	}
	if !q.BuyPrice.Asset().Equals(asset.XCHF) {
		t.Errorf("quote asset = %s", q.BuyPrice.Asset())
	}
}

func TestFetchQuote_FeeWidensSpread(t *testing.T) {
	pairs := [][2]string{
		{"1000000000000000000", "1000000000000000000"},
		{"250000000000000000000", "248000000000000000000"},
		{"312456789012345678901", "299999999999999999999"},
		{"100", "99"},
	}

	for _, p := range pairs {
		rawBuy, rawSell := xchf(p[0]), xchf(p[1])
		q, err := FetchQuote(rawBuy, rawSell, DefaultFeeRate)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if lt, _ := q.SellPrice.LessThan(rawSell); !lt {
			t.Errorf("sell %s not below raw sell %s", q.SellPrice.RawString(), p[1])
		}
		if gt, _ := rawSell.GreaterThan(rawBuy); gt {
			t.Fatalf("bad fixture: raw sell above raw buy")
		}
		if gt, _ := q.BuyPrice.GreaterThan(rawBuy); !gt {
			t.Errorf("buy %s not above raw buy %s", q.BuyPrice.RawString(), p[0])
		}
	}
}

func TestFetchQuote_ZeroFee(t *testing.T) {
	rate, err := NewFeeRateBps(0)
	if err != nil {
		t.Fatal(err)
	}

	q, err := FetchQuote(xchf("1000"), xchf("900"), rate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.BuyPrice.RawString() != "1000" || q.SellPrice.RawString() != "900" {
		t.Errorf("zero fee changed prices: %s / %s", q.BuyPrice.RawString(), q.SellPrice.RawString())
	}
}

func TestQuote_Spread(t *testing.T) {
	q, err := FetchQuote(xchf("250000000000000000000"), xchf("250000000000000000000"), DefaultFeeRate)
	if err != nil {
		t.Fatal(err)
	}

	s := q.Spread()
	if !s.Absolute.Equal(decimal.RequireFromString("6")) {
		t.Errorf("Absolute = %s, want 6", s.Absolute)
	}
	if s.BasisPoints.Round(2).String() != "242.91" {
		t.Errorf("BasisPoints = %s", s.BasisPoints.Round(2))
	}
}
