// Package pricefeed implements the ReserveOracle over the PriceFeed contract.
package pricefeed

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swapbox/business/pricing/app"
	"github.com/fd1az/swapbox/business/pricing/domain"
	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/circuitbreaker"
	"github.com/fd1az/swapbox/internal/logger"
	"github.com/fd1az/swapbox/internal/ratelimit"
)

const (
	tracerName = "pricefeed"
	meterName  = "pricefeed"
)

// Ensure Client implements ReserveOracle.
var _ app.ReserveOracle = (*Client)(nil)

// Config configures the PriceFeed client.
type Config struct {
	Address     common.Address
	CallTimeout time.Duration
	Limiter     *ratelimit.Limiter
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	callsTotal  metric.Int64Counter
	callLatency metric.Float64Histogram
	callErrors  metric.Int64Counter
}

// Client reads reserves and prices from the PriceFeed contract.
type Client struct {
	caller  ethereum.ContractCaller
	address common.Address
	abi     abi.ABI
	timeout time.Duration
	limiter *ratelimit.Limiter

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a PriceFeed client. caller is usually an *ethclient.Client.
func NewClient(caller ethereum.ContractCaller, cfg Config, log logger.LoggerInterface) (*Client, error) {
	parsedABI, err := abi.JSON(strings.NewReader(PriceFeedABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse price feed ABI: %w", err)
	}

	c := &Client{
		caller:  caller,
		address: cfg.Address,
		abi:     parsedABI,
		timeout: cfg.CallTimeout,
		limiter: cfg.Limiter,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("pricefeed").WithStateLogger(log)
	c.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.callsTotal, err = meter.Int64Counter(
		"pricefeed_calls_total",
		metric.WithDescription("Total price feed contract calls"),
	)
	if err != nil {
		return err
	}

	c.metrics.callLatency, err = meter.Float64Histogram(
		"pricefeed_call_latency_ms",
		metric.WithDescription("Price feed call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.callErrors, err = meter.Int64Counter(
		"pricefeed_call_errors_total",
		metric.WithDescription("Total price feed call errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Reserves returns the pool reserves as reported by getReserves.
func (c *Client) Reserves(ctx context.Context) (domain.Reserves, error) {
	ctx, span := c.tracer.Start(ctx, "pricefeed.get_reserves")
	defer span.End()

	outputs, err := c.call(ctx, methodGetReserves)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return domain.Reserves{}, err
	}

	token, eth, err := twoUints(outputs)
	if err != nil {
		span.RecordError(err)
		return domain.Reserves{}, err
	}

	span.SetAttributes(
		attribute.String("token_reserve", token.String()),
		attribute.String("eth_reserve", eth.String()),
	)
	span.SetStatus(codes.Ok, "reserves received")

	return domain.Reserves{TokenReserve: token, EthReserve: eth}, nil
}

// RawPrice returns the exchange price for buying and selling amount wei of ETH.
func (c *Client) RawPrice(ctx context.Context, amount *big.Int) (*big.Int, *big.Int, error) {
	ctx, span := c.tracer.Start(ctx, "pricefeed.get_price",
		trace.WithAttributes(attribute.String("amount", amount.String())),
	)
	defer span.End()

	outputs, err := c.call(ctx, methodGetPrice, amount, amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return nil, nil, err
	}

	buy, sell, err := twoUints(outputs)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	span.SetAttributes(
		attribute.String("buy", buy.String()),
		attribute.String("sell", sell.String()),
	)
	span.SetStatus(codes.Ok, "price received")

	c.logger.Debug(ctx, "price feed quote", "amount", amount.String(), "buy", buy.String(), "sell", sell.String())

	return buy, sell, nil
}

// call packs, executes and unpacks a view call.
func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("method", method))
	c.metrics.callsTotal.Add(ctx, 1, attrs)
	defer func() {
		c.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}()

	callData, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.callErrors.Add(ctx, 1, attrs)
		return nil, apperror.New(apperror.CodeServiceTimeout,
			apperror.WithCause(err),
			apperror.WithContext("rate limiter wait for "+method))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.cb.Execute(func() ([]byte, error) {
		return c.caller.CallContract(ctx, ethereum.CallMsg{
			To:   &c.address,
			Data: callData,
		}, nil)
	})
	if err != nil {
		c.metrics.callErrors.Add(ctx, 1, attrs)
		code := apperror.CodeContractCallFailed
		if circuitbreaker.IsOpen(err) {
			code = apperror.CodeCircuitOpen
		}
		return nil, apperror.New(code,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s on %s", method, c.address.Hex())))
	}

	outputs, err := c.abi.Unpack(method, result)
	if err != nil {
		c.metrics.callErrors.Add(ctx, 1, attrs)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode "+method))
	}

	return outputs, nil
}

func twoUints(outputs []any) (*big.Int, *big.Int, error) {
	if len(outputs) < 2 {
		return nil, nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}
	a, okA := outputs[0].(*big.Int)
	b, okB := outputs[1].(*big.Int)
	if !okA || !okB {
		return nil, nil, fmt.Errorf("unexpected output types: %T, %T", outputs[0], outputs[1])
	}
	return a, b, nil
}
