package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swapbox/business/blockchain/app"
	"github.com/fd1az/swapbox/business/blockchain/domain"
	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/cache"
	"github.com/fd1az/swapbox/internal/circuitbreaker"
	"github.com/fd1az/swapbox/internal/logger"
)

var _ app.GasOracle = (*GasOracle)(nil)

// GasClient is the part of *ethclient.Client the gas oracle needs.
type GasClient interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// GasOracleConfig bounds what a settlement transaction may pay.
type GasOracleConfig struct {
	CacheTTL    time.Duration // one block by default
	MaxGasPrice *big.Int      // node suggestions above this are clamped
	DefaultGas  uint64        // limit used when estimation fails
}

func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{
		CacheTTL:    12 * time.Second,
		MaxGasPrice: new(big.Int).Mul(big.NewInt(500), big.NewInt(1_000_000_000)),
		DefaultGas:  200_000,
	}
}

const (
	keyPrice = "price"
	keyTip   = "tip"
)

// GasOracle prices locally signed buyEth transactions. Suggestions from the
// node are cached for a block and fetched through a circuit breaker.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface
	client GasClient

	suggestions *cache.Cache[string, *big.Int]
	cb          *circuitbreaker.CircuitBreaker[*big.Int]

	tracer   trace.Tracer
	lookups  metric.Int64Counter
	gasPrice metric.Float64Gauge
}

func NewGasOracle(client GasClient, cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	meter := otel.Meter(meterName)

	lookups, err := meter.Int64Counter("gas_lookups_total",
		metric.WithDescription("Gas price and tip lookups by kind and source"),
		metric.WithUnit("{lookup}"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	gauge, err := meter.Float64Gauge("gas_price_gwei",
		metric.WithDescription("Last gas price used for settlement"),
		metric.WithUnit("gwei"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &GasOracle{
		config:      cfg,
		logger:      log,
		client:      client,
		suggestions: cache.New[string, *big.Int](time.Minute),
		cb:          circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-oracle").WithStateLogger(log)),
		tracer:      otel.Tracer(tracerName),
		lookups:     lookups,
		gasPrice:    gauge,
	}, nil
}

// suggest returns the cached value for key or asks the node.
func (g *GasOracle) suggest(ctx context.Context, key string, fetch func(context.Context) (*big.Int, error)) (*big.Int, error) {
	if v, ok := g.suggestions.Get(ctx, key); ok {
		g.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", key), attribute.String("source", "cache")))
		return new(big.Int).Set(v), nil
	}
	g.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", key), attribute.String("source", "node")))

	v, err := g.cb.Execute(func() (*big.Int, error) { return fetch(ctx) })
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("gas "+key))
	}
	g.suggestions.Set(ctx, key, v, g.config.CacheTTL)
	return new(big.Int).Set(v), nil
}

// GetGasPrice returns the node's gas price, clamped to MaxGasPrice.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.price")
	defer span.End()

	wei, err := g.suggest(ctx, keyPrice, g.client.SuggestGasPrice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gas price")
		return nil, err
	}
	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		g.logger.Warn(ctx, "gas price above cap, clamping", "wei", wei.String(), "cap", g.config.MaxGasPrice.String())
		wei = new(big.Int).Set(g.config.MaxGasPrice)
	}

	price := domain.NewGasPrice(wei)
	g.gasPrice.Record(ctx, price.Gwei())
	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))
	return price, nil
}

// GetGasTipCap returns the suggested EIP-1559 priority fee.
func (g *GasOracle) GetGasTipCap(ctx context.Context) (*big.Int, error) {
	ctx, span := g.tracer.Start(ctx, "gas.tip_cap")
	defer span.End()

	tip, err := g.suggest(ctx, keyTip, g.client.SuggestGasTipCap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tip cap")
		return nil, err
	}
	return tip, nil
}

// EstimateGas asks the node for the call's gas and adds 10%.
func (g *GasOracle) EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate", trace.WithAttributes(attribute.String("to", to.Hex())))
	defer span.End()

	gas, err := g.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		span.RecordError(err)
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext("estimate "+to.Hex()))
	}
	return gas + gas/10, nil
}

// GetGasEstimate prices a call. A failed estimation falls back to
// DefaultGas so a flaky node does not block a settlement; a reverting call
// still fails on-chain and is reported from its receipt.
func (g *GasOracle) GetGasEstimate(ctx context.Context, from, to common.Address, data []byte) (*domain.GasEstimate, error) {
	price, err := g.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	limit, err := g.EstimateGas(ctx, from, to, data)
	if err != nil {
		g.logger.Warn(ctx, "gas estimation failed, using default limit", "error", err, "default", g.config.DefaultGas)
		limit = g.config.DefaultGas
	}
	return domain.NewGasEstimate(limit, price), nil
}

func (g *GasOracle) Close() error {
	g.suggestions.Close()
	return nil
}
