package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/logger"
)

type fakeGasClient struct {
	price       *big.Int
	tip         *big.Int
	tipErr      error
	gas         uint64
	estimateErr error
	priceCalls  int
	tipCalls    int
	lastMsg     ethereum.CallMsg
}

func (f *fakeGasClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.priceCalls++
	return f.price, nil
}

func (f *fakeGasClient) SuggestGasTipCap(context.Context) (*big.Int, error) {
	f.tipCalls++
	return f.tip, f.tipErr
}

func (f *fakeGasClient) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.lastMsg = msg
	return f.gas, f.estimateErr
}

func newGasOracle(t *testing.T, client GasClient) *GasOracle {
	t.Helper()
	g, err := NewGasOracle(client, DefaultGasOracleConfig(), logger.NewDiscard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestGasOracle_CachesPrice(t *testing.T) {
	client := &fakeGasClient{price: big.NewInt(30_000_000_000)}
	g := newGasOracle(t, client)

	for i := 0; i < 3; i++ {
		p, err := g.GetGasPrice(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if p.Gwei() != 30 {
			t.Errorf("Gwei = %v", p.Gwei())
		}
	}
	if client.priceCalls != 1 {
		t.Errorf("node asked %d times, want 1", client.priceCalls)
	}
}

func TestGasOracle_CapsPrice(t *testing.T) {
	client := &fakeGasClient{price: big.NewInt(0).Mul(big.NewInt(900), big.NewInt(1_000_000_000))}
	g := newGasOracle(t, client)

	p, err := g.GetGasPrice(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if p.Gwei() != 500 {
		t.Errorf("Gwei = %v, want capped 500", p.Gwei())
	}
}

func TestGasOracle_EstimateAddsMargin(t *testing.T) {
	client := &fakeGasClient{gas: 100000}
	g := newGasOracle(t, client)

	from := common.HexToAddress("0x01")
	to := common.HexToAddress("0x02")
	gas, err := g.EstimateGas(context.Background(), from, to, []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if gas != 110000 {
		t.Errorf("gas = %d, want 110000", gas)
	}
	if client.lastMsg.From != from || *client.lastMsg.To != to {
		t.Errorf("call msg = %+v", client.lastMsg)
	}
}

func TestGasOracle_EstimateFallsBackToDefault(t *testing.T) {
	client := &fakeGasClient{price: big.NewInt(1_000_000_000), estimateErr: errors.New("execution reverted")}
	g := newGasOracle(t, client)

	if _, err := g.EstimateGas(context.Background(), common.Address{}, common.Address{}, nil); !apperror.HasCode(err, apperror.CodeGasEstimationFailed) {
		t.Errorf("EstimateGas error = %v", err)
	}

	est, err := g.GetGasEstimate(context.Background(), common.Address{}, common.Address{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if est.GasLimit != DefaultGasOracleConfig().DefaultGas {
		t.Errorf("GasLimit = %d", est.GasLimit)
	}
}

func TestGasOracle_TipCapCachedSeparately(t *testing.T) {
	client := &fakeGasClient{price: big.NewInt(10), tip: big.NewInt(2)}
	g := newGasOracle(t, client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		tip, err := g.GetGasTipCap(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if tip.Int64() != 2 {
			t.Errorf("tip = %s", tip)
		}
		// callers may mutate what they get back
		tip.SetInt64(99)
	}
	if _, err := g.GetGasPrice(ctx); err != nil {
		t.Fatal(err)
	}
	if client.tipCalls != 1 || client.priceCalls != 1 {
		t.Errorf("tip calls = %d, price calls = %d", client.tipCalls, client.priceCalls)
	}
}

func TestGasOracle_TipCapError(t *testing.T) {
	client := &fakeGasClient{tipErr: errors.New("method not found")}
	g := newGasOracle(t, client)

	if _, err := g.GetGasTipCap(context.Background()); !apperror.HasCode(err, apperror.CodeEthereumRPCError) {
		t.Errorf("error = %v", err)
	}
}
