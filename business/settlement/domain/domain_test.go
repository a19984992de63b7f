package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/swapbox/internal/apperror"
)

var (
	dest    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	machine = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func TestNewBuyOrder(t *testing.T) {
	tests := []struct {
		name    string
		tokens  *big.Int
		minEth  *big.Int
		dest    common.Address
		machine common.Address
		wantErr bool
	}{
		{"valid", big.NewInt(10), big.NewInt(0), dest, machine, false},
		{"zero_tokens", big.NewInt(0), big.NewInt(0), dest, machine, true},
		{"nil_tokens", nil, big.NewInt(0), dest, machine, true},
		{"negative_min", big.NewInt(1), big.NewInt(-1), dest, machine, true},
		{"zero_destination", big.NewInt(1), big.NewInt(0), common.Address{}, machine, true},
		{"no_machine", big.NewInt(1), big.NewInt(0), dest, common.Address{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuyOrder(tt.tokens, tt.minEth, tt.dest, tt.machine)
			if tt.wantErr {
				if !apperror.HasCode(err, apperror.CodeInvalidInput) {
					t.Errorf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewBuyOrder_CopiesAmounts(t *testing.T) {
	tokens := big.NewInt(5)
	o, err := NewBuyOrder(tokens, big.NewInt(1), dest, machine)
	if err != nil {
		t.Fatal(err)
	}
	tokens.SetInt64(99)
	if o.TokenAmount.Int64() != 5 {
		t.Errorf("order aliases caller's amount: %s", o.TokenAmount)
	}
}

func TestReceipt_Delivered(t *testing.T) {
	wei, _ := new(big.Int).SetString("996006981039903216", 10)
	r := &Receipt{EthAmount: wei}

	if r.Delivered() != "996006981039903216" {
		t.Errorf("Delivered = %s", r.Delivered())
	}
	if !r.DeliveredEth().Equal(decimal.RequireFromString("0.996006981039903216")) {
		t.Errorf("DeliveredEth = %s", r.DeliveredEth())
	}

	var empty *Receipt
	if empty.Delivered() != "0" {
		t.Errorf("nil receipt Delivered = %s", empty.Delivered())
	}
}
