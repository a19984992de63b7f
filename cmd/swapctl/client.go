package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-zeromq/zmq4"

	"github.com/fd1az/swapbox/business/broker/app"
	"github.com/fd1az/swapbox/business/broker/infra/websocket"
	"github.com/fd1az/swapbox/internal/asset"
	"github.com/fd1az/swapbox/internal/config"
	"github.com/fd1az/swapbox/internal/logger"
	"github.com/fd1az/swapbox/internal/wsconn"
)

// order is the message the kiosk sends.
type order struct {
	Method  string `json:"method"`
	Amount  string `json:"amount"`
	MinEth  string `json:"min_eth"`
	Address string `json:"address"`
}

// buildOrder checks the arguments locally so typos fail before reaching the
// broker, which would answer with a generic invalid message. minEth is in
// ETH and goes on the wire in wei.
func buildOrder(method, amount, minEth, address string) ([]byte, error) {
	if _, ok := asset.ParseUint(amount); !ok {
		return nil, fmt.Errorf("amount %q is not a whole number of tokens", amount)
	}
	minWei, err := asset.ParseString(asset.ETH, minEth)
	if err != nil {
		return nil, fmt.Errorf("min-eth %q: %w", minEth, err)
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("address %q is not a hex address", address)
	}
	return json.Marshal(order{Method: method, Amount: amount, MinEth: minWei.RawString(), Address: address})
}

// orEndpoint returns endpoint, or the local default for the transport.
func orEndpoint(endpoint, transport, topic string) string {
	if endpoint != "" {
		return endpoint
	}
	if transport == config.TransportWebSocket {
		if topic == "orders" {
			return "ws://127.0.0.1:8090/orders"
		}
		return "ws://127.0.0.1:8090/subscribe"
	}
	switch topic {
	case "orders":
		return "tcp://127.0.0.1:5555"
	case app.TopicStatus:
		return "tcp://127.0.0.1:5557"
	default:
		return "tcp://127.0.0.1:5556"
	}
}

// requester sends one order and waits for its reply.
type requester interface {
	Request(ctx context.Context, payload []byte) ([]byte, error)
	Close() error
}

func dialRequester(ctx context.Context, transport, endpoint string) (requester, error) {
	switch transport {
	case config.TransportZMQ, "":
		return dialZMQRequester(ctx, endpoint)
	case config.TransportWebSocket:
		return dialWSRequester(ctx, endpoint)
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

type zmqRequester struct {
	sock zmq4.Socket
}

func dialZMQRequester(ctx context.Context, endpoint string) (*zmqRequester, error) {
	sock := zmq4.NewReq(ctx)
	if err := sock.Dial(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &zmqRequester{sock: sock}, nil
}

func (r *zmqRequester) Request(ctx context.Context, payload []byte) ([]byte, error) {
	if err := r.sock.Send(zmq4.NewMsg(payload)); err != nil {
		return nil, fmt.Errorf("send order: %w", err)
	}

	type result struct {
		msg zmq4.Msg
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := r.sock.Recv()
		done <- result{msg, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("receive reply: %w", res.err)
		}
		return res.msg.Bytes(), nil
	}
}

func (r *zmqRequester) Close() error {
	return r.sock.Close()
}

type wsRequester struct {
	client  *wsconn.Client
	replies chan []byte
}

func dialWSRequester(ctx context.Context, endpoint string) (*wsRequester, error) {
	cfg := wsconn.DefaultConfig(endpoint, "swapctl")
	cfg.MaxReconnects = 1
	client, err := wsconn.New(cfg)
	if err != nil {
		return nil, err
	}

	r := &wsRequester{client: client, replies: make(chan []byte, 1)}
	client.OnMessage(func(_ context.Context, msg []byte) {
		select {
		case r.replies <- msg:
		default:
		}
	})
	if err := client.Connect(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return r, nil
}

func (r *wsRequester) Request(ctx context.Context, payload []byte) ([]byte, error) {
	if err := r.client.Send(ctx, payload); err != nil {
		return nil, fmt.Errorf("send order: %w", err)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-r.replies:
		return reply, nil
	}
}

func (r *wsRequester) Close() error {
	return r.client.Close()
}

// publication is one message from the price or status stream.
type publication struct {
	topic   string
	payload []byte
}

// dialTail subscribes to topic ("" for every topic). On zmq an empty topic
// subscribes to the price endpoint only, since each topic has its own socket.
func dialTail(ctx context.Context, transport, endpoint, topic string, log logger.LoggerInterface) (<-chan publication, func() error, error) {
	switch transport {
	case config.TransportZMQ, "":
		return dialZMQTail(ctx, endpoint, topic, log)
	case config.TransportWebSocket:
		return dialWSTail(ctx, endpoint, topic, log)
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", transport)
	}
}

func dialZMQTail(ctx context.Context, endpoint, topic string, log logger.LoggerInterface) (<-chan publication, func() error, error) {
	sub := zmq4.NewSub(ctx)
	if err := sub.Dial(endpoint); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	if err := sub.SetOption(zmq4.OptionSubscribe, topic); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe %q: %w", topic, err)
	}

	out := make(chan publication, 16)
	go func() {
		defer close(out)
		for {
			msg, err := sub.Recv()
			if err != nil {
				if ctx.Err() == nil {
					log.Warn(ctx, "subscription ended", "error", err)
				}
				return
			}
			if len(msg.Frames) < 2 {
				continue
			}
			select {
			case out <- publication{topic: string(msg.Frames[0]), payload: msg.Frames[1]}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Close, nil
}

func dialWSTail(ctx context.Context, endpoint, topic string, log logger.LoggerInterface) (<-chan publication, func() error, error) {
	if topic != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("endpoint %q: %w", endpoint, err)
		}
		q := u.Query()
		q.Set("topic", topic)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	client, err := wsconn.New(wsconn.DefaultConfig(endpoint, "swapctl-tail"))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan publication, 16)
	client.OnMessage(func(ctx context.Context, msg []byte) {
		var env websocket.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			log.Warn(ctx, "undecodable publication", "error", err, "raw", strings.TrimSpace(string(msg)))
			return
		}
		select {
		case out <- publication{topic: env.Topic, payload: env.Payload}:
		default:
			log.Warn(ctx, "output lagging, publication dropped", "topic", env.Topic)
		}
	})
	client.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			log.Warn(context.Background(), "subscription state", "state", state, "error", err)
		}
	})
	if err := client.ConnectWithRetry(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	return out, client.Close, nil
}
