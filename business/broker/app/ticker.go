package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swapbox/internal/logger"
)

// Published topics.
const (
	TopicPriceTicker = "priceticker"
	TopicStatus      = "status"
)

const (
	defaultPriceInterval  = 15 * time.Second
	defaultStatusInterval = 10 * time.Second
)

// TickerConfig sets the publication periods.
type TickerConfig struct {
	PriceInterval  time.Duration
	StatusInterval time.Duration
}

type tickerMetrics struct {
	published metric.Int64Counter
	failures  metric.Int64Counter
	quote     metric.Float64Gauge
}

// Ticker periodically publishes pool reserves and node status.
type Ticker struct {
	prices    PriceSource
	health    NodeHealthOracle
	pricePub  Publisher
	statusPub Publisher
	cfg       TickerConfig

	logger  logger.LoggerInterface
	metrics *tickerMetrics
}

// NewTicker creates a ticker. pricePub and statusPub may be the same publisher.
func NewTicker(
	prices PriceSource,
	health NodeHealthOracle,
	pricePub, statusPub Publisher,
	cfg TickerConfig,
	log logger.LoggerInterface,
) (*Ticker, error) {
	if cfg.PriceInterval <= 0 {
		cfg.PriceInterval = defaultPriceInterval
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = defaultStatusInterval
	}

	t := &Ticker{
		prices:    prices,
		health:    health,
		pricePub:  pricePub,
		statusPub: statusPub,
		cfg:       cfg,
		logger:    log,
	}

	if err := t.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return t, nil
}

func (t *Ticker) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	t.metrics = &tickerMetrics{}

	t.metrics.published, err = meter.Int64Counter(
		"broker_publications_total",
		metric.WithDescription("Messages published, by topic"),
	)
	if err != nil {
		return err
	}

	t.metrics.failures, err = meter.Int64Counter(
		"broker_publication_failures_total",
		metric.WithDescription("Failed publication attempts, by topic"),
	)
	if err != nil {
		return err
	}

	t.metrics.quote, err = meter.Float64Gauge(
		"broker_quote_price",
		metric.WithDescription("Latest quote for 1 ETH in tokens, by side"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Run publishes immediately and then on every interval until ctx ends.
func (t *Ticker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		t.loop(ctx, TopicPriceTicker, t.cfg.PriceInterval, t.PublishPrice)
	}()
	go func() {
		defer wg.Done()
		t.loop(ctx, TopicStatus, t.cfg.StatusInterval, t.PublishStatus)
	}()

	wg.Wait()
	return nil
}

func (t *Ticker) loop(ctx context.Context, topic string, every time.Duration, publish func(context.Context) error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := publish(ctx); err != nil && ctx.Err() == nil {
			t.metrics.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
			t.logger.Error(ctx, "publication failed", "topic", topic, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PublishPrice publishes the current reserves on the priceticker topic,
// zero reserves included. The quote is computed alongside for logs and
// the quote gauge.
func (t *Ticker) PublishPrice(ctx context.Context) error {
	reserves, err := t.prices.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reserves: %w", err)
	}

	payload, err := json.Marshal(reserves)
	if err != nil {
		return fmt.Errorf("encode reserves: %w", err)
	}

	if err := t.pricePub.Publish(ctx, TopicPriceTicker, payload); err != nil {
		return err
	}
	t.metrics.published.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", TopicPriceTicker)))

	quote, err := t.prices.Quote(ctx)
	if err != nil {
		t.logger.Warn(ctx, "quote failed", "error", err)
		return nil
	}

	t.metrics.quote.Record(ctx, quote.BuyPrice.ToFloat64(), metric.WithAttributes(attribute.String("side", "buy")))
	t.metrics.quote.Record(ctx, quote.SellPrice.ToFloat64(), metric.WithAttributes(attribute.String("side", "sell")))

	return nil
}

// PublishStatus publishes the node status on the status topic.
func (t *Ticker) PublishStatus(ctx context.Context) error {
	status, err := t.health.Status(ctx)
	if err != nil {
		return fmt.Errorf("node status: %w", err)
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	if err := t.statusPub.Publish(ctx, TopicStatus, payload); err != nil {
		return err
	}
	t.metrics.published.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", TopicStatus)))

	return nil
}
