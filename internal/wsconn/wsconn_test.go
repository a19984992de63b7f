package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

const testOrder = `{"method":"buy","amount":"250","min_eth":"0","address":"0x00000000000000000000000000000000000000aa"}`

// brokerStub accepts websocket connections and hands each to serve.
func brokerStub(t *testing.T, serve func(ctx context.Context, conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		if serve != nil {
			serve(r.Context(), conn)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// drain reads until the peer goes away, counting messages.
func drain(count *atomic.Int32) func(context.Context, *websocket.Conn) {
	return func(ctx context.Context, conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
			if count != nil {
				count.Add(1)
			}
		}
	}
}

// newClient builds a client without pings; tweak adjusts the config.
func newClient(t *testing.T, url string, tweak func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	if tweak != nil {
		tweak(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_Connect(t *testing.T) {
	url := brokerStub(t, drain(nil))
	c := newClient(t, url, nil)

	if err := c.Connect(testCtx(t)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c.State() != StateConnected || !c.IsConnected() {
		t.Errorf("state = %s", c.State())
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	c := newClient(t, "ws://127.0.0.1:1", nil)

	if err := c.Connect(testCtx(t)); err == nil {
		t.Fatal("expected dial error")
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %s", c.State())
	}
	if err := c.Send(testCtx(t), []byte("x")); err != ErrNotConnected {
		t.Errorf("Send while disconnected = %v", err)
	}
}

func TestClient_ConnectWithRetryGivesUp(t *testing.T) {
	c := newClient(t, "ws://127.0.0.1:1", func(cfg *Config) {
		cfg.InitialBackoff = 5 * time.Millisecond
		cfg.MaxReconnects = 3
	})

	if err := c.ConnectWithRetry(testCtx(t)); err == nil {
		t.Fatal("expected error after MaxReconnects attempts")
	}
}

func TestClient_SendJSONOrder(t *testing.T) {
	got := make(chan []byte, 1)
	url := brokerStub(t, func(ctx context.Context, conn *websocket.Conn) {
		if _, data, err := conn.Read(ctx); err == nil {
			got <- data
		}
	})
	c := newClient(t, url, nil)
	ctx := testCtx(t)
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	var order map[string]string
	if err := json.Unmarshal([]byte(testOrder), &order); err != nil {
		t.Fatal(err)
	}
	if err := c.SendJSON(ctx, order); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}

	select {
	case data := <-got:
		var echoed map[string]string
		if err := json.Unmarshal(data, &echoed); err != nil {
			t.Fatalf("server got non-JSON %q", data)
		}
		if echoed["method"] != "buy" || echoed["amount"] != "250" {
			t.Errorf("server got %v", echoed)
		}
	case <-ctx.Done():
		t.Fatal("server never received the order")
	}
}

func TestClient_ReplyDelivered(t *testing.T) {
	const reply = `{"status":"error","result":"Sell not supported yet"}`
	url := brokerStub(t, func(ctx context.Context, conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(reply)); err != nil {
				return
			}
		}
	})
	c := newClient(t, url, nil)

	replies := make(chan string, 1)
	c.OnMessage(func(_ context.Context, msg []byte) { replies <- string(msg) })

	ctx := testCtx(t)
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Send(ctx, []byte(testOrder)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-replies:
		if got != reply {
			t.Errorf("reply = %s", got)
		}
	case <-ctx.Done():
		t.Fatal("no reply")
	}
}

func TestClient_StateTransitions(t *testing.T) {
	url := brokerStub(t, drain(nil))
	c := newClient(t, url, nil)

	var mu sync.Mutex
	var states []State
	c.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if err := c.Connect(testCtx(t)); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateConnecting, StateConnected, StateClosed}
	if len(states) < len(want) {
		t.Fatalf("states = %v", states)
	}
	for i, s := range want {
		if states[i] != s {
			t.Errorf("states[%d] = %s, want %s (all: %v)", i, states[i], s, states)
		}
	}
	if err := c.Connect(testCtx(t)); err != ErrClosed {
		t.Errorf("Connect after Close = %v", err)
	}
}

func TestClient_ConcurrentOrders(t *testing.T) {
	var count atomic.Int32
	url := brokerStub(t, drain(&count))
	c := newClient(t, url, nil)
	ctx := testCtx(t)
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	const senders, each = 8, 5
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				if err := c.Send(ctx, []byte(testOrder)); err != nil {
					t.Errorf("Send: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	waitFor(t, "all orders", func() bool { return count.Load() == senders*each })
}

func TestClient_OversizedMessageDrops(t *testing.T) {
	url := brokerStub(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(strings.Repeat("A", 4096)))
		drain(nil)(ctx, conn)
	})
	c := newClient(t, url, func(cfg *Config) {
		cfg.MaxMessageSize = 100
		cfg.InitialBackoff = time.Second
	})

	if err := c.Connect(testCtx(t)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "drop", func() bool { return !c.IsConnected() })
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	var accepts atomic.Int32
	url := brokerStub(t, func(ctx context.Context, conn *websocket.Conn) {
		if accepts.Add(1) == 1 {
			return
		}
		drain(nil)(ctx, conn)
	})
	c := newClient(t, url, func(cfg *Config) { cfg.InitialBackoff = 10 * time.Millisecond })

	ctx := testCtx(t)
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "reconnect", func() bool { return accepts.Load() >= 2 && c.IsConnected() })

	if err := c.Send(ctx, []byte(testOrder)); err != nil {
		t.Errorf("Send after reconnect: %v", err)
	}
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
}
