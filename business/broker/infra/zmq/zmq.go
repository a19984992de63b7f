// Package zmq implements the broker transport over ZeroMQ: two PUB
// sockets for the price ticker and node status, and a ROUTER socket
// answering order requests from REQ clients.
package zmq

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"

	"github.com/fd1az/swapbox/business/broker/app"
	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/logger"
)

var (
	_ app.Publisher = (*Publisher)(nil)
	_ app.Replier   = (*Replier)(nil)
	_ app.Request   = (*request)(nil)
)

// Config holds the endpoints to bind, e.g. "tcp://*:5556".
type Config struct {
	PubPriceURL  string
	PubStatusURL string
	ReplierURL   string
}

// Transport owns the three sockets.
type Transport struct {
	price   *Publisher
	status  *Publisher
	replier *Replier
}

// Listen binds all sockets. Sockets already bound are closed on failure.
func Listen(ctx context.Context, cfg Config, log logger.LoggerInterface) (*Transport, error) {
	price, err := NewPublisher(ctx, cfg.PubPriceURL, log)
	if err != nil {
		return nil, err
	}

	status, err := NewPublisher(ctx, cfg.PubStatusURL, log)
	if err != nil {
		price.Close()
		return nil, err
	}

	replier, err := NewReplier(ctx, cfg.ReplierURL, log)
	if err != nil {
		price.Close()
		status.Close()
		return nil, err
	}

	log.Info(ctx, "zmq transport listening",
		"pub_price", price.Endpoint(),
		"pub_status", status.Endpoint(),
		"replier", replier.Endpoint(),
	)

	return &Transport{price: price, status: status, replier: replier}, nil
}

func (t *Transport) PricePublisher() *Publisher  { return t.price }
func (t *Transport) StatusPublisher() *Publisher { return t.status }
func (t *Transport) Replier() *Replier           { return t.replier }

// Healthy reports whether all sockets are still open.
func (t *Transport) Healthy(context.Context) (bool, string) {
	if t.price.closed.Load() || t.status.closed.Load() || t.replier.closed.Load() {
		return false, "zmq socket closed"
	}
	return true, "listening on " + t.replier.Endpoint()
}

// Close closes all sockets.
func (t *Transport) Close() error {
	err1 := t.replier.Close()
	err2 := t.price.Close()
	err3 := t.status.Close()
	for _, err := range []error{err1, err2, err3} {
		if err != nil {
			return err
		}
	}
	return nil
}

func endpoint(sock zmq4.Socket, fallback string) string {
	if addr := sock.Addr(); addr != nil {
		return addr.Network() + "://" + addr.String()
	}
	return fallback
}

func messagingError(err error, context string) error {
	return apperror.New(apperror.CodeMessagingError, apperror.WithCause(err), apperror.WithContext(context))
}

// Publisher is a PUB socket sending [topic, payload] messages.
type Publisher struct {
	sock     zmq4.Socket
	endpoint string
	mu       sync.Mutex
	closed   atomic.Bool
	logger   logger.LoggerInterface
}

// NewPublisher binds a PUB socket on url.
func NewPublisher(ctx context.Context, url string, log logger.LoggerInterface) (*Publisher, error) {
	sock := zmq4.NewPub(ctx)
	if err := sock.Listen(url); err != nil {
		sock.Close()
		return nil, messagingError(err, "bind pub "+url)
	}
	return &Publisher{sock: sock, endpoint: endpoint(sock, url), logger: log}, nil
}

func (p *Publisher) Endpoint() string { return p.endpoint }

// Publish sends a two-frame message. PUB never blocks on slow subscribers.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if p.closed.Load() {
		return app.ErrTransportClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.sock.Send(zmq4.NewMsgFrom([]byte(topic), payload)); err != nil {
		return messagingError(err, "publish "+topic)
	}
	p.logger.Debug(ctx, "published", "topic", topic, "payload", string(payload))
	return nil
}

func (p *Publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.sock.Close()
}
