// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swapbox/business/blockchain/app"
	"github.com/fd1az/swapbox/business/blockchain/domain"
	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/circuitbreaker"
	"github.com/fd1az/swapbox/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swapbox/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/swapbox/business/blockchain/infra/ethereum"
)

// Ensure NodeMonitor implements NodeHealthOracle.
var _ app.NodeHealthOracle = (*NodeMonitor)(nil)

// ChainReader is the part of *ethclient.Client the monitor needs.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	SyncProgress(ctx context.Context) (*ethereum.SyncProgress, error)
}

// RPCCaller issues raw JSON-RPC calls; *rpc.Client satisfies it.
type RPCCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// nodeMonitorMetrics holds OTEL metric instruments.
type nodeMonitorMetrics struct {
	checksTotal  metric.Int64Counter
	blockNumber  metric.Int64Gauge
	syncing      metric.Int64Gauge
	peerCount    metric.Int64Gauge
	checkLatency metric.Float64Histogram
}

// NodeMonitor polls the node for connectivity and sync state.
type NodeMonitor struct {
	chain   ChainReader
	rpc     RPCCaller
	timeout time.Duration
	logger  logger.LoggerInterface
	now     func() time.Time

	cb *circuitbreaker.CircuitBreaker[uint64]

	tracer  trace.Tracer
	metrics *nodeMonitorMetrics
}

// NewNodeMonitor creates a monitor. timeout bounds each RPC call.
func NewNodeMonitor(chain ChainReader, rpc RPCCaller, timeout time.Duration, log logger.LoggerInterface) (*NodeMonitor, error) {
	m := &NodeMonitor{
		chain:   chain,
		rpc:     rpc,
		timeout: timeout,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
		tracer:  otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("node-monitor").WithStateLogger(log)
	cbCfg.Timeout = 5 * time.Second
	m.cb = circuitbreaker.New[uint64](cbCfg)

	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *NodeMonitor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &nodeMonitorMetrics{}

	m.metrics.checksTotal, err = meter.Int64Counter(
		"node_status_checks_total",
		metric.WithDescription("Total node status checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return err
	}

	m.metrics.blockNumber, err = meter.Int64Gauge(
		"node_block_number",
		metric.WithDescription("Latest block seen by the node"),
	)
	if err != nil {
		return err
	}

	m.metrics.syncing, err = meter.Int64Gauge(
		"node_syncing",
		metric.WithDescription("1 while the node is syncing"),
	)
	if err != nil {
		return err
	}

	m.metrics.peerCount, err = meter.Int64Gauge(
		"node_peer_count",
		metric.WithDescription("Connected peers"),
	)
	if err != nil {
		return err
	}

	m.metrics.checkLatency, err = meter.Float64Histogram(
		"node_status_latency_ms",
		metric.WithDescription("Node status check latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Status polls the node. RPC failures are reported as a disconnected
// node; an error is returned only when ctx is done.
func (m *NodeMonitor) Status(ctx context.Context) (domain.NodeStatus, error) {
	ctx, span := m.tracer.Start(ctx, "node.status")
	defer span.End()

	start := time.Now()
	m.metrics.checksTotal.Add(ctx, 1)
	defer func() {
		m.metrics.checkLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	status := domain.Disconnected(m.now())

	head, err := m.cb.Execute(func() (uint64, error) {
		callCtx, cancel := m.callContext(ctx)
		defer cancel()
		return m.chain.BlockNumber(callCtx)
	})
	if err != nil {
		if ctx.Err() != nil {
			span.RecordError(ctx.Err())
			return status, apperror.New(apperror.CodeServiceTimeout, apperror.WithCause(ctx.Err()),
				apperror.WithContext("node status"))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "node unreachable")
		m.logger.Warn(ctx, "node unreachable", "error", err)
		return status, nil
	}

	status.IsConnected = true
	status.CurrentBlock = head
	status.HighestBlock = head

	progress, err := m.syncProgress(ctx)
	switch {
	case err != nil:
		// unknown sync state counts as syncing
		m.logger.Warn(ctx, "sync progress failed", "error", err)
		status.IsSyncing = true
	case progress != nil:
		status.IsSyncing = true
		status.CurrentBlock = progress.CurrentBlock
		status.HighestBlock = progress.HighestBlock
	}

	if peers, err := m.peerCount(ctx); err != nil {
		m.logger.Debug(ctx, "net_peerCount failed", "error", err)
	} else {
		status.PeerCount = peers
	}

	m.metrics.blockNumber.Record(ctx, int64(status.CurrentBlock))
	m.metrics.peerCount.Record(ctx, int64(status.PeerCount))
	syncing := int64(0)
	if status.IsSyncing {
		syncing = 1
	}
	m.metrics.syncing.Record(ctx, syncing)

	span.SetAttributes(
		attribute.Bool("is_syncing", status.IsSyncing),
		attribute.Int64("current_block", int64(status.CurrentBlock)),
		attribute.Int64("highest_block", int64(status.HighestBlock)),
		attribute.Int64("peer_count", int64(status.PeerCount)),
	)
	span.SetStatus(codes.Ok, "checked")

	return status, nil
}

// Accounts returns the node-managed accounts (eth_accounts).
func (m *NodeMonitor) Accounts(ctx context.Context) ([]common.Address, error) {
	if m.rpc == nil {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("no rpc client for eth_accounts"))
	}
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	var accounts []common.Address
	if err := m.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("eth_accounts"))
	}
	return accounts, nil
}

func (m *NodeMonitor) syncProgress(ctx context.Context) (*ethereum.SyncProgress, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.chain.SyncProgress(ctx)
}

func (m *NodeMonitor) peerCount(ctx context.Context) (uint64, error) {
	if m.rpc == nil {
		return 0, nil
	}
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	var peers hexutil.Uint64
	if err := m.rpc.CallContext(ctx, &peers, "net_peerCount"); err != nil {
		return 0, err
	}
	return uint64(peers), nil
}

func (m *NodeMonitor) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}
