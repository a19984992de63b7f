package zmq

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"

	"github.com/fd1az/swapbox/business/broker/app"
	"github.com/fd1az/swapbox/internal/logger"
)

const inboxSize = 16

// Replier is a ROUTER socket serving REQ (and DEALER) clients. Each
// request keeps its routing envelope so the reply reaches its sender,
// and a request left unanswered does not block the next one.
type Replier struct {
	sock     zmq4.Socket
	endpoint string
	inbox    chan zmq4.Msg
	sendMu   sync.Mutex
	closed   atomic.Bool
	logger   logger.LoggerInterface
}

// NewReplier binds a ROUTER socket on url and starts reading.
func NewReplier(ctx context.Context, url string, log logger.LoggerInterface) (*Replier, error) {
	sock := zmq4.NewRouter(ctx, zmq4.WithID(zmq4.SocketIdentity("swapbox")))
	if err := sock.Listen(url); err != nil {
		sock.Close()
		return nil, messagingError(err, "bind router "+url)
	}

	r := &Replier{
		sock:     sock,
		endpoint: endpoint(sock, url),
		inbox:    make(chan zmq4.Msg, inboxSize),
		logger:   log,
	}
	go r.readLoop(ctx)

	return r, nil
}

func (r *Replier) Endpoint() string { return r.endpoint }

func (r *Replier) readLoop(ctx context.Context) {
	defer close(r.inbox)

	for {
		msg, err := r.sock.Recv()
		if err != nil {
			if !r.closed.Load() && ctx.Err() == nil {
				r.logger.Error(ctx, "zmq receive failed", "error", err)
			}
			return
		}
		// identity frame plus at least a payload frame
		if len(msg.Frames) < 2 {
			r.logger.Warn(ctx, "dropping message without envelope", "frames", len(msg.Frames))
			continue
		}

		select {
		case r.inbox <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// Receive returns the next request.
func (r *Replier) Receive(ctx context.Context) (app.Request, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-r.inbox:
		if !ok {
			return nil, app.ErrTransportClosed
		}
		last := len(msg.Frames) - 1
		return &request{
			replier:  r,
			envelope: msg.Frames[:last],
			payload:  bytes.Clone(msg.Frames[last]),
		}, nil
	}
}

func (r *Replier) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.sock.Close()
}

func (r *Replier) send(envelope [][]byte, payload []byte) error {
	if r.closed.Load() {
		return app.ErrTransportClosed
	}

	frames := make([][]byte, 0, len(envelope)+1)
	frames = append(frames, envelope...)
	frames = append(frames, payload)

	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	if err := r.sock.Send(zmq4.NewMsgFrom(frames...)); err != nil {
		return messagingError(err, "reply")
	}
	return nil
}

// request is one routed message. envelope is the identity frame followed
// by any delimiter frames.
type request struct {
	replier  *Replier
	envelope [][]byte
	payload  []byte
	replied  atomic.Bool
}

func (q *request) Payload() []byte { return q.payload }

// Reply sends payload back to the requester. Only the first call sends.
func (q *request) Reply(_ context.Context, payload []byte) error {
	if !q.replied.CompareAndSwap(false, true) {
		return nil
	}
	return q.replier.send(q.envelope, payload)
}
