package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swapbox/business/broker/domain"
	"github.com/fd1az/swapbox/internal/apm"
	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/logger"
)

const (
	tracerName = "broker"
	meterName  = "broker"

	defaultHealthTimeout     = 5 * time.Second
	defaultSettlementTimeout = 3 * time.Minute
	receiveRetryDelay        = 100 * time.Millisecond
)

// Config bounds the broker's external calls.
type Config struct {
	HealthTimeout     time.Duration
	SettlementTimeout time.Duration
}

type brokerMetrics struct {
	ordersTotal   metric.Int64Counter
	ordersDropped metric.Int64Counter
	orderLatency  metric.Float64Histogram
}

// Broker serves orders from a Replier strictly one at a time. Each order
// is validated, gated on node health, dispatched and answered once, or
// dropped without a reply while the node is not ready.
type Broker struct {
	replier    Replier
	health     NodeHealthOracle
	settlement Settlement
	cfg        Config

	// slot is held for the whole settlement call, even past its timeout.
	slot chan struct{}

	logger  logger.LoggerInterface
	tracer  apm.Tracer
	metrics *brokerMetrics
}

// NewBroker creates a broker. Zero timeouts take the defaults.
func NewBroker(replier Replier, health NodeHealthOracle, settlement Settlement, cfg Config, log logger.LoggerInterface) (*Broker, error) {
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = defaultHealthTimeout
	}
	if cfg.SettlementTimeout <= 0 {
		cfg.SettlementTimeout = defaultSettlementTimeout
	}

	b := &Broker{
		replier:    replier,
		health:     health,
		settlement: settlement,
		cfg:        cfg,
		slot:       make(chan struct{}, 1),
		logger:     log,
		tracer:     apm.NewTracer(tracerName),
	}

	if err := b.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return b, nil
}

func (b *Broker) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	b.metrics = &brokerMetrics{}

	b.metrics.ordersTotal, err = meter.Int64Counter(
		"broker_orders_total",
		metric.WithDescription("Orders answered, by reply status"),
	)
	if err != nil {
		return err
	}

	b.metrics.ordersDropped, err = meter.Int64Counter(
		"broker_orders_dropped_total",
		metric.WithDescription("Orders dropped without a reply because the node was not ready"),
	)
	if err != nil {
		return err
	}

	b.metrics.orderLatency, err = meter.Float64Histogram(
		"broker_order_latency_ms",
		metric.WithDescription("Order handling latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Run serves requests until ctx ends or the replier closes.
func (b *Broker) Run(ctx context.Context) error {
	b.logger.Info(ctx, "order broker started")

	for {
		req, err := b.replier.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrTransportClosed) {
				b.logger.Info(ctx, "order broker stopped")
				return nil
			}
			b.logger.Error(ctx, "receive failed", "error", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(receiveRetryDelay):
			}
			continue
		}

		b.Handle(ctx, req)
	}
}

// Handle processes one request and sends its reply, if any.
func (b *Broker) Handle(ctx context.Context, req Request) {
	requestID := uuid.NewString()
	start := time.Now()

	ctx, span := b.tracer.StartSpanFromContext(ctx, "broker.order")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", requestID))

	reply, ok := b.Process(ctx, requestID, req.Payload())
	latency := float64(time.Since(start).Milliseconds())

	if !ok {
		b.metrics.ordersDropped.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("dropped", true))
		return
	}

	attrs := metric.WithAttributes(attribute.String("status", string(reply.Status)))
	b.metrics.ordersTotal.Add(ctx, 1, attrs)
	b.metrics.orderLatency.Record(ctx, latency, attrs)
	span.SetAttributes(
		attribute.String("status", string(reply.Status)),
		attribute.String("result", reply.Result),
	)

	if err := req.Reply(ctx, reply.Marshal()); err != nil {
		span.NoticeError(err)
		b.logger.Error(ctx, "reply failed", "request_id", requestID, "error", err)
		return
	}

	b.logger.Info(ctx, "order answered",
		"request_id", requestID,
		"status", reply.Status,
		"result", reply.Result,
		"latency_ms", latency,
	)
}

// Process runs the order state machine. ok is false when the order is
// dropped and must not be answered.
func (b *Broker) Process(ctx context.Context, requestID string, payload []byte) (reply domain.OrderReply, ok bool) {
	order, parseErr := domain.ParseOrder(payload)

	// The node is checked before anything is answered, malformed
	// messages included.
	if err := b.checkHealth(ctx); err != nil {
		b.logger.Warn(ctx, "order dropped", "request_id", requestID, "error", err)
		return domain.OrderReply{}, false
	}

	if parseErr != nil {
		b.logger.Warn(ctx, "order rejected", "request_id", requestID, "error", parseErr)
		if apperror.HasCode(parseErr, apperror.CodeUnsupportedMethod) {
			return domain.Failure(domain.ResultInvalidMethod), true
		}
		return domain.InvalidMessage(domain.Reason(parseErr)), true
	}

	switch order.Method {
	case domain.MethodBuy:
		b.logger.Info(ctx, "order received",
			"request_id", requestID,
			"method", order.Method,
			"amount", order.Amount.String(),
			"min_eth", order.MinOutput.String(),
			"address", order.Destination.Hex(),
		)
		return b.settle(ctx, requestID, order), true
	case domain.MethodSell:
		b.logger.Info(ctx, "order received", "request_id", requestID, "method", order.Method)
		return domain.Failure(domain.ResultSellNotSupported), true
	default:
		return domain.Failure(domain.ResultInvalidMethod), true
	}
}

func (b *Broker) checkHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.HealthTimeout)
	defer cancel()

	status, err := b.health.Status(ctx)
	if err != nil {
		return apperror.New(apperror.CodeNodeNotReady, apperror.WithCause(err))
	}
	if !status.Ready() {
		return apperror.New(apperror.CodeNodeNotReady, apperror.WithContext(
			fmt.Sprintf("connected=%t syncing=%t", status.IsConnected, status.IsSyncing)))
	}
	return nil
}

type settleResult struct {
	delivered string
	err       error
}

// settle runs one buy settlement under the settlement timeout. The slot
// is released only when the settlement call itself returns, so a timed
// out call can never overlap a new one.
func (b *Broker) settle(ctx context.Context, requestID string, order domain.OrderRequest) domain.OrderReply {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.SettlementTimeout)
	defer cancel()

	ctx, span := b.tracer.StartSpanFromContext(ctx, "broker.settle")
	defer span.End()

	select {
	case b.slot <- struct{}{}:
	case <-ctx.Done():
		err := apperror.New(apperror.CodeSettlementBusy, apperror.WithCause(ctx.Err()))
		span.NoticeError(err)
		b.logger.Error(ctx, "settlement slot unavailable", "request_id", requestID, "error", err)
		return domain.Failure(domain.ResultSettlementBusy)
	}

	done := make(chan settleResult, 1)
	go func() {
		defer func() { <-b.slot }()
		receipt, err := b.settlement.BuyEth(ctx, order.Amount, order.MinOutput, order.Destination)
		if err != nil {
			done <- settleResult{err: err}
			return
		}
		done <- settleResult{delivered: receipt.Delivered()}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			span.NoticeError(res.err)
			b.logger.Error(ctx, "buy settlement failed", "request_id", requestID, "error", res.err)
			return domain.Failure(domain.ResultSettlementError)
		}
		span.SetStatus(codes.Ok, "settled")
		return domain.Success(res.delivered)
	case <-ctx.Done():
		err := apperror.New(apperror.CodeServiceTimeout, apperror.WithCause(ctx.Err()),
			apperror.WithContext("buy settlement"))
		span.NoticeError(err)
		b.logger.Error(ctx, "buy settlement timed out", "request_id", requestID, "error", err)
		return domain.Failure(domain.ResultSettlementError)
	}
}
