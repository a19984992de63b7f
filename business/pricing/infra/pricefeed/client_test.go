package pricefeed

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/logger"
)

// fakeCaller answers PriceFeed calls from fixed values.
type fakeCaller struct {
	abi      abi.ABI
	reserves [2]*big.Int
	price    [2]*big.Int
	err      error

	calls    int
	lastTo   common.Address
	lastArgs []any
}

func newFakeCaller(t *testing.T) *fakeCaller {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(PriceFeedABI))
	if err != nil {
		t.Fatal(err)
	}
	return &fakeCaller{abi: parsed}
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	f.lastTo = *msg.To
	if f.err != nil {
		return nil, f.err
	}

	reserves := f.abi.Methods[methodGetReserves]
	price := f.abi.Methods[methodGetPrice]

	switch {
	case bytes.Equal(msg.Data[:4], reserves.ID):
		return reserves.Outputs.Pack(f.reserves[0], f.reserves[1])
	case bytes.Equal(msg.Data[:4], price.ID):
		args, err := price.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		f.lastArgs = args
		return price.Outputs.Pack(f.price[0], f.price[1])
	}
	return nil, errors.New("unknown selector")
}

var feedAddress = common.HexToAddress("0x00000000000000000000000000000000000000fe")

func newTestClient(t *testing.T, caller ethereum.ContractCaller) *Client {
	t.Helper()
	c, err := NewClient(caller, Config{Address: feedAddress}, logger.NewDiscard())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClient_Reserves(t *testing.T) {
	fake := newFakeCaller(t)
	fake.reserves = [2]*big.Int{big.NewInt(5000), big.NewInt(20)}

	r, err := newTestClient(t, fake).Reserves(context.Background())
	if err != nil {
		t.Fatalf("Reserves: %v", err)
	}

	if r.TokenReserve.Int64() != 5000 || r.EthReserve.Int64() != 20 {
		t.Errorf("reserves = %s / %s", r.TokenReserve, r.EthReserve)
	}
	if fake.lastTo != feedAddress {
		t.Errorf("called %s, want %s", fake.lastTo.Hex(), feedAddress.Hex())
	}
}

func TestClient_RawPrice(t *testing.T) {
	fake := newFakeCaller(t)
	fake.price = [2]*big.Int{big.NewInt(250), big.NewInt(248)}

	amount := big.NewInt(1_000_000_000_000_000_000)
	buy, sell, err := newTestClient(t, fake).RawPrice(context.Background(), amount)
	if err != nil {
		t.Fatalf("RawPrice: %v", err)
	}

	if buy.Int64() != 250 || sell.Int64() != 248 {
		t.Errorf("price = %s / %s", buy, sell)
	}

	// the same reference amount is sent for both sides
	if len(fake.lastArgs) != 2 {
		t.Fatalf("args = %v", fake.lastArgs)
	}
	for i, arg := range fake.lastArgs {
		if arg.(*big.Int).Cmp(amount) != 0 {
			t.Errorf("arg %d = %v, want %s", i, arg, amount)
		}
	}
}

func TestClient_CallFailure(t *testing.T) {
	fake := newFakeCaller(t)
	fake.err = errors.New("connection refused")

	_, err := newTestClient(t, fake).Reserves(context.Background())
	if !apperror.HasCode(err, apperror.CodeContractCallFailed) {
		t.Fatalf("error = %v, want %s", err, apperror.CodeContractCallFailed)
	}
}

func TestClient_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	fake := newFakeCaller(t)
	fake.err = errors.New("connection refused")
	c := newTestClient(t, fake)

	var err error
	for i := 0; i < 6; i++ {
		_, err = c.Reserves(context.Background())
	}

	if !apperror.HasCode(err, apperror.CodeCircuitOpen) {
		t.Fatalf("error = %v, want %s", err, apperror.CodeCircuitOpen)
	}
	if fake.calls != 5 {
		t.Errorf("node called %d times, want 5", fake.calls)
	}
}
