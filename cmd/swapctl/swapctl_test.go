package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swapbox/business/broker/app"
	"github.com/fd1az/swapbox/business/broker/domain"
	"github.com/fd1az/swapbox/business/broker/infra/websocket"
	"github.com/fd1az/swapbox/business/broker/infra/zmq"
	"github.com/fd1az/swapbox/internal/config"
	"github.com/fd1az/swapbox/internal/logger"
)

const dest = "0x000000000000000000000000000000000000dEaD"

func TestBuildOrder_ParsesOnTheBroker(t *testing.T) {
	payload, err := buildOrder("buy", "20", "0.000000000000001", dest)
	require.NoError(t, err)

	req, err := domain.ParseOrder(payload)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodBuy, req.Method)
	assert.Equal(t, "20", req.Amount.String())
	assert.Equal(t, "1000", req.MinOutput.String())
	assert.Equal(t, strings.ToLower(dest), strings.ToLower(req.Destination.Hex()))
}

func TestBuildOrder_RejectsBadArguments(t *testing.T) {
	tests := []struct {
		name                    string
		amount, minEth, address string
	}{
		{"amount", "ten", "0", dest},
		{"min eth", "10", "", dest},
		{"min eth below one wei", "10", "0.0000000000000000001", dest},
		{"negative amount", "-1", "0", dest},
		{"address", "10", "0", "0x1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildOrder("buy", tt.amount, tt.minEth, tt.address)
			assert.Error(t, err)
		})
	}
}

func TestOrEndpoint(t *testing.T) {
	assert.Equal(t, "tcp://127.0.0.1:5555", orEndpoint("", config.TransportZMQ, "orders"))
	assert.Equal(t, "tcp://127.0.0.1:5557", orEndpoint("", config.TransportZMQ, app.TopicStatus))
	assert.Equal(t, "tcp://127.0.0.1:5556", orEndpoint("", config.TransportZMQ, app.TopicPriceTicker))
	assert.Equal(t, "ws://127.0.0.1:8090/orders", orEndpoint("", config.TransportWebSocket, "orders"))
	assert.Equal(t, "ws://127.0.0.1:8090/subscribe", orEndpoint("", config.TransportWebSocket, ""))
	assert.Equal(t, "tcp://box:1", orEndpoint("tcp://box:1", config.TransportZMQ, "orders"))
}

// answer replies to the next request on replier with reply.
func answer(ctx context.Context, t *testing.T, replier app.Replier, reply string) {
	t.Helper()
	go func() {
		req, err := replier.Receive(ctx)
		if err != nil {
			return
		}
		_ = req.Reply(ctx, []byte(reply))
	}()
}

func TestRun_OrderOverZMQ(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr, err := zmq.Listen(ctx, zmq.Config{
		PubPriceURL:  "tcp://127.0.0.1:0",
		PubStatusURL: "tcp://127.0.0.1:0",
		ReplierURL:   "tcp://127.0.0.1:0",
	}, logger.NewDiscard())
	require.NoError(t, err)
	defer tr.Close()

	answer(ctx, t, tr.Replier(), `{"status":"error","result":"Sell not supported yet"}`)

	var out bytes.Buffer
	err = run(ctx, "sell", []string{
		"-transport", "zmq",
		"-endpoint", tr.Replier().Endpoint(),
		"-amount", "1",
		"-address", dest,
		"-timeout", "5s",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"error","result":"Sell not supported yet"}`+"\n", out.String())
}

func TestRun_OrderOverWebSocket(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := websocket.NewServer("127.0.0.1:0", logger.NewDiscard())
	require.NoError(t, srv.Start())
	defer srv.Close()

	answer(ctx, t, srv, `{"status":"success","result":"0x01"}`)

	var out bytes.Buffer
	err := run(ctx, "buy", []string{
		"-transport", "websocket",
		"-endpoint", "ws://" + srv.Addr() + "/orders",
		"-amount", "5",
		"-address", dest,
		"-timeout", "5s",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"success","result":"0x01"}`+"\n", out.String())
}

func TestRun_DroppedOrderTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := websocket.NewServer("127.0.0.1:0", logger.NewDiscard())
	require.NoError(t, srv.Start())
	defer srv.Close()

	var out bytes.Buffer
	err := run(ctx, "buy", []string{
		"-transport", "websocket",
		"-endpoint", "ws://" + srv.Addr() + "/orders",
		"-amount", "5",
		"-address", dest,
		"-timeout", "200ms",
	}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reply within")
	assert.Empty(t, out.String())
}

func TestRun_TailOverWebSocket(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := websocket.NewServer("127.0.0.1:0", logger.NewDiscard())
	require.NoError(t, srv.Start())
	defer srv.Close()

	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				_ = srv.Publish(ctx, app.TopicStatus, []byte(`{"ready":true}`))
				_ = srv.Publish(ctx, app.TopicPriceTicker, []byte(`{"eth":"1"}`))
			}
		}
	}()

	var out bytes.Buffer
	err := run(ctx, "tail", []string{
		"-transport", "websocket",
		"-endpoint", "ws://" + srv.Addr() + "/subscribe",
		"-topic", app.TopicStatus,
		"-n", "2",
	}, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, `status {"ready":true}`, line)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), "refund", nil, &bytes.Buffer{})
	assert.Error(t, err)
}
