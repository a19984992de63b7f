package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockchainDomain "github.com/fd1az/swapbox/business/blockchain/domain"
	"github.com/fd1az/swapbox/business/broker/domain"
	settlementDomain "github.com/fd1az/swapbox/business/settlement/domain"
	"github.com/fd1az/swapbox/internal/logger"
)

const buyPayload = `{"method":"buy","amount":"250","min_eth":"1","address":"0x00000000000000000000000000000000000000aa"}`

type fakeHealth struct {
	status blockchainDomain.NodeStatus
	err    error
	hang   bool
}

func (f *fakeHealth) Status(ctx context.Context) (blockchainDomain.NodeStatus, error) {
	if f.hang {
		<-ctx.Done()
		return blockchainDomain.NodeStatus{}, ctx.Err()
	}
	return f.status, f.err
}

func readyNode() *fakeHealth {
	return &fakeHealth{status: blockchainDomain.NodeStatus{IsConnected: true, CurrentBlock: 100, HighestBlock: 100}}
}

type fakeSettlement struct {
	calls     atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	release   chan struct{} // nil: return at once
	err       error
}

func (f *fakeSettlement) BuyEth(_ context.Context, tokens, _ *big.Int, to common.Address) (*settlementDomain.Receipt, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}

	if f.release != nil {
		// ignores ctx on purpose, like a hung RPC
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &settlementDomain.Receipt{Recipient: to, TokenAmount: tokens, EthAmount: big.NewInt(996006981039903216)}, nil
}

type fakeRequest struct {
	payload []byte
	mu      sync.Mutex
	replies [][]byte
}

func (r *fakeRequest) Payload() []byte { return r.payload }

func (r *fakeRequest) Reply(_ context.Context, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, payload)
	return nil
}

func (r *fakeRequest) Replies() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replies
}

type fakeReplier struct {
	requests chan Request
}

func (f *fakeReplier) Receive(ctx context.Context) (Request, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case req, ok := <-f.requests:
		if !ok {
			return nil, ErrTransportClosed
		}
		return req, nil
	}
}

func (f *fakeReplier) Close() error { return nil }

func newTestBroker(t *testing.T, health NodeHealthOracle, settlement Settlement, cfg Config) *Broker {
	t.Helper()
	b, err := NewBroker(&fakeReplier{}, health, settlement, cfg, logger.NewDiscard())
	require.NoError(t, err)
	return b
}

func TestBroker_BuySuccess(t *testing.T) {
	settlement := &fakeSettlement{}
	b := newTestBroker(t, readyNode(), settlement, Config{})

	req := &fakeRequest{payload: []byte(buyPayload)}
	b.Handle(context.Background(), req)

	replies := req.Replies()
	require.Len(t, replies, 1)
	assert.JSONEq(t, `{"status":"success","result":"996006981039903216"}`, string(replies[0]))
	assert.EqualValues(t, 1, settlement.calls.Load())
}

func TestBroker_DropsWhenNodeNotReady(t *testing.T) {
	tests := []struct {
		name    string
		health  *fakeHealth
		payload string
	}{
		{"syncing", &fakeHealth{status: blockchainDomain.NodeStatus{IsConnected: true, IsSyncing: true}}, buyPayload},
		{"disconnected", &fakeHealth{status: blockchainDomain.NodeStatus{}}, buyPayload},
		{"health_error", &fakeHealth{err: errors.New("connection refused")}, buyPayload},
		{"health_timeout", &fakeHealth{hang: true}, buyPayload},
		{"malformed_while_syncing", &fakeHealth{status: blockchainDomain.NodeStatus{IsConnected: true, IsSyncing: true}}, `{"method":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settlement := &fakeSettlement{}
			b := newTestBroker(t, tt.health, settlement, Config{HealthTimeout: 20 * time.Millisecond})

			req := &fakeRequest{payload: []byte(tt.payload)}
			b.Handle(context.Background(), req)

			assert.Empty(t, req.Replies())
			assert.Zero(t, settlement.calls.Load())
		})
	}
}

func TestBroker_FixedReplies(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    domain.OrderReply
	}{
		{
			"sell",
			`{"method":"sell","amount":"1","min_eth":"0","address":"0x00000000000000000000000000000000000000aa"}`,
			domain.Failure("Sell not supported yet"),
		},
		{"sell_without_fields", `{"method":"sell"}`, domain.Failure("Sell not supported yet")},
		{
			"sell_with_invalid_fields",
			`{"method":"sell","amount":"abc","min_eth":"0"}`,
			domain.Failure("Sell not supported yet"),
		},
		{"unknown_method", `{"method":"refund"}`, domain.Failure("Invalid method")},
		{"malformed_json", `not json`, domain.Failure("invalid message: invalid JSON")},
		{
			"missing_amount",
			`{"method":"buy","min_eth":"0","address":"0x00000000000000000000000000000000000000aa"}`,
			domain.Failure("invalid message: missing field amount"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settlement := &fakeSettlement{}
			b := newTestBroker(t, readyNode(), settlement, Config{})

			reply, ok := b.Process(context.Background(), "test", []byte(tt.payload))
			require.True(t, ok)
			assert.Equal(t, tt.want, reply)
			assert.Zero(t, settlement.calls.Load(), "settlement must not be invoked")
		})
	}
}

func TestBroker_SettlementErrorIsGeneric(t *testing.T) {
	settlement := &fakeSettlement{err: errors.New("execution reverted: insufficient output")}
	b := newTestBroker(t, readyNode(), settlement, Config{})

	reply, ok := b.Process(context.Background(), "test", []byte(buyPayload))
	require.True(t, ok)
	assert.Equal(t, domain.Failure("error while processing buy order"), reply)
	assert.NotContains(t, reply.Result, "reverted")
}

func TestBroker_SettlementTimeoutNeverOverlaps(t *testing.T) {
	settlement := &fakeSettlement{release: make(chan struct{})}
	b := newTestBroker(t, readyNode(), settlement, Config{SettlementTimeout: 30 * time.Millisecond})

	// first call hangs past its timeout
	reply, ok := b.Process(context.Background(), "first", []byte(buyPayload))
	require.True(t, ok)
	assert.Equal(t, domain.Failure("error while processing buy order"), reply)

	// the hung call still holds the slot
	reply, ok = b.Process(context.Background(), "second", []byte(buyPayload))
	require.True(t, ok)
	assert.Equal(t, domain.Failure("settlement busy"), reply)
	assert.EqualValues(t, 1, settlement.calls.Load())

	// once it returns, the next order goes through
	settlement.release <- struct{}{}
	close(settlement.release)
	require.Eventually(t, func() bool { return settlement.inFlight.Load() == 0 }, time.Second, time.Millisecond)

	reply, ok = b.Process(context.Background(), "third", []byte(buyPayload))
	require.True(t, ok)
	assert.True(t, reply.OK())

	assert.EqualValues(t, 2, settlement.calls.Load())
	assert.EqualValues(t, 1, settlement.maxFlight.Load())
}

func TestBroker_RunServesInOrder(t *testing.T) {
	replier := &fakeReplier{requests: make(chan Request, 3)}
	b, err := NewBroker(replier, readyNode(), &fakeSettlement{}, Config{}, logger.NewDiscard())
	require.NoError(t, err)

	reqs := []*fakeRequest{
		{payload: []byte(buyPayload)},
		{payload: []byte(`{"method":"sell","amount":"1","min_eth":"0","address":"0x00000000000000000000000000000000000000aa"}`)},
		{payload: []byte(`garbage`)},
	}
	for _, r := range reqs {
		replier.requests <- r
	}
	close(replier.requests)

	require.NoError(t, b.Run(context.Background()))

	for i, r := range reqs {
		assert.Len(t, r.Replies(), 1, "request %d", i)
	}
	assert.Contains(t, string(reqs[0].Replies()[0]), `"success"`)
	assert.Contains(t, string(reqs[1].Replies()[0]), "Sell not supported yet")
	assert.Contains(t, string(reqs[2].Replies()[0]), "invalid message")
}

func TestBroker_RunStopsOnCancel(t *testing.T) {
	replier := &fakeReplier{requests: make(chan Request)}
	b, err := NewBroker(replier, readyNode(), &fakeSettlement{}, Config{}, logger.NewDiscard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		require.FailNow(t, "Run did not stop")
	}
}
