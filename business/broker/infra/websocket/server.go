// Package websocket implements the broker transport over WebSocket. One
// HTTP listener serves /orders, where every text frame is an order and
// replies go back on the same connection, and /subscribe?topic=..., which
// streams publications as {"topic":...,"payload":...}.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/swapbox/business/broker/app"
	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/logger"
)

var (
	_ app.Publisher = (*Server)(nil)
	_ app.Replier   = (*Server)(nil)
	_ app.Request   = (*request)(nil)
)

const (
	subscriberBuffer = 32
	writeTimeout     = 5 * time.Second
	maxOrderSize     = 4096
)

// Envelope wraps a publication on /subscribe.
type Envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

type subscriber struct {
	topic string // empty: every topic
	out   chan []byte
}

// Server is both the Replier and the Publisher of the websocket transport.
type Server struct {
	addr     string
	server   *http.Server
	listener net.Listener

	requests chan *request

	subsMu sync.RWMutex
	subs   map[*subscriber]struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    atomic.Bool
	wg        sync.WaitGroup

	logger logger.LoggerInterface
}

// NewServer creates a server for addr, e.g. ":8090". Call Start to listen.
func NewServer(addr string, log logger.LoggerInterface) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:     addr,
		requests: make(chan *request),
		subs:     make(map[*subscriber]struct{}),
		ctx:      ctx,
		cancel:   cancel,
		logger:   log,
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the routes, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", s.handleOrders)
	mux.HandleFunc("/subscribe", s.handleSubscribe)
	return mux
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return apperror.New(apperror.CodeMessagingError, apperror.WithCause(err), apperror.WithContext("listen "+s.addr))
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "websocket server error", "error", err)
		}
	}()

	s.logger.Info(context.Background(), "websocket transport listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Healthy reports whether the server accepts connections.
func (s *Server) Healthy(context.Context) (bool, string) {
	if s.closed.Load() {
		return false, "websocket server closed"
	}
	return true, "listening on " + s.Addr()
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(maxOrderSize)

	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.CloseNow()

	s.logger.Debug(r.Context(), "order client connected", "remote", r.RemoteAddr)

	for {
		typ, data, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		req := &request{conn: conn, payload: data}
		select {
		case s.requests <- req:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket accept failed", "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.CloseNow()

	sub := &subscriber{topic: topic, out: make(chan []byte, subscriberBuffer)}
	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	s.subsMu.Unlock()
	defer func() {
		s.subsMu.Lock()
		delete(s.subs, sub)
		s.subsMu.Unlock()
	}()

	// subscribers never send; CloseRead notices when they leave
	ctx := conn.CloseRead(s.ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Receive returns the next order from any /orders connection.
func (s *Server) Receive(ctx context.Context) (app.Request, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, app.ErrTransportClosed
	case req := <-s.requests:
		return req, nil
	}
}

// Publish fans payload out to the topic's subscribers. Slow subscribers
// miss messages instead of stalling the publisher.
func (s *Server) Publish(ctx context.Context, topic string, payload []byte) error {
	if s.closed.Load() {
		return app.ErrTransportClosed
	}

	msg, err := json.Marshal(Envelope{Topic: topic, Payload: payload})
	if err != nil {
		return apperror.New(apperror.CodeMessagingError, apperror.WithCause(err), apperror.WithContext("encode "+topic))
	}

	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for sub := range s.subs {
		if sub.topic != "" && sub.topic != topic {
			continue
		}
		select {
		case sub.out <- msg:
		default:
			s.logger.Warn(ctx, "subscriber lagging, message dropped", "topic", topic)
		}
	}
	return nil
}

// Close stops the listener and ends all connections. It is idempotent.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.listener != nil {
			err = s.server.Shutdown(ctx)
		}
		s.wg.Wait()
	})
	return err
}

// request is one text frame from an /orders connection.
type request struct {
	conn    *websocket.Conn
	payload []byte
	replied atomic.Bool
}

func (q *request) Payload() []byte { return q.payload }

// Reply writes payload on the originating connection. Only the first call sends.
func (q *request) Reply(ctx context.Context, payload []byte) error {
	if !q.replied.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := q.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return apperror.New(apperror.CodeMessagingError, apperror.WithCause(err), apperror.WithContext("reply"))
	}
	return nil
}
