// Package atola implements the Settlement port over the Atola contract.
package atola

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blockchainDomain "github.com/fd1az/swapbox/business/blockchain/domain"
	"github.com/fd1az/swapbox/business/settlement/app"
	"github.com/fd1az/swapbox/business/settlement/domain"
	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/logger"
)

const (
	tracerName = "atola"
	meterName  = "atola"

	ModeNode  = "node"
	ModeLocal = "local"

	defaultPollInterval = 2 * time.Second
)

// Ensure Client implements Settlement.
var _ app.Settlement = (*Client)(nil)

// Backend is the part of *ethclient.Client the client needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// RPCCaller sends raw JSON-RPC requests, usually an *rpc.Client.
type RPCCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// GasOracle prices locally signed transactions.
type GasOracle interface {
	GetGasTipCap(ctx context.Context) (*big.Int, error)
	GetGasEstimate(ctx context.Context, from, to common.Address, data []byte) (*blockchainDomain.GasEstimate, error)
}

// Config configures the settlement client. A nil PrivateKey selects
// node-managed signing through eth_sendTransaction.
type Config struct {
	Address      common.Address
	ChainID      uint64
	PrivateKey   *ecdsa.PrivateKey
	GasLimit     uint64
	PollInterval time.Duration
}

type clientMetrics struct {
	submissions metric.Int64Counter
	latency     metric.Float64Histogram
}

// Client submits buyEth transactions and waits for them to be mined.
// Submissions are serialized: at most one is outstanding at a time.
type Client struct {
	backend Backend
	rpc     RPCCaller
	gas     GasOracle
	address common.Address
	abi     abi.ABI

	key          *ecdsa.PrivateKey
	gasLimit     uint64
	pollInterval time.Duration

	chainMu sync.Mutex
	chainID *big.Int

	slot chan struct{}

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a settlement client. rpc is required for node-managed
// signing and gas for local signing.
func NewClient(backend Backend, rpc RPCCaller, gas GasOracle, cfg Config, log logger.LoggerInterface) (*Client, error) {
	parsedABI, err := abi.JSON(strings.NewReader(AtolaABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse atola ABI: %w", err)
	}

	switch {
	case cfg.PrivateKey == nil && rpc == nil:
		return nil, errors.New("atola: node-managed signing needs an rpc client")
	case cfg.PrivateKey != nil && gas == nil:
		return nil, errors.New("atola: local signing needs a gas oracle")
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	c := &Client{
		backend:      backend,
		rpc:          rpc,
		gas:          gas,
		address:      cfg.Address,
		abi:          parsedABI,
		key:          cfg.PrivateKey,
		gasLimit:     cfg.GasLimit,
		pollInterval: poll,
		slot:         make(chan struct{}, 1),
		logger:       log,
		tracer:       otel.Tracer(tracerName),
	}
	if cfg.ChainID > 0 {
		c.chainID = new(big.Int).SetUint64(cfg.ChainID)
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.submissions, err = meter.Int64Counter(
		"settlement_submissions_total",
		metric.WithDescription("Buy settlements by signing mode and outcome"),
	)
	if err != nil {
		return err
	}

	c.metrics.latency, err = meter.Float64Histogram(
		"settlement_latency_ms",
		metric.WithDescription("Time from submission to mined receipt in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Mode reports the signing mode, "node" or "local".
func (c *Client) Mode() string {
	if c.key != nil {
		return ModeLocal
	}
	return ModeNode
}

// Signer returns the locally signing account, or the zero address in node mode.
func (c *Client) Signer() common.Address {
	if c.key == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(c.key.PublicKey)
}

// BuyEth submits order and waits for its receipt.
func (c *Client) BuyEth(ctx context.Context, order domain.BuyOrder) (receipt *domain.Receipt, err error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	select {
	case c.slot <- struct{}{}:
		defer func() { <-c.slot }()
	case <-ctx.Done():
		return nil, apperror.New(apperror.CodeSettlementBusy, apperror.WithCause(ctx.Err()))
	}

	ctx, span := c.tracer.Start(ctx, "atola.buy_eth",
		trace.WithAttributes(
			attribute.String("mode", c.Mode()),
			attribute.String("to", order.Destination.Hex()),
			attribute.String("token_amount", order.TokenAmount.String()),
			attribute.String("min_eth", order.MinEth.String()),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = string(apperror.GetCode(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		attrs := metric.WithAttributes(attribute.String("mode", c.Mode()), attribute.String("status", status))
		c.metrics.submissions.Add(ctx, 1, attrs)
		c.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}()

	data, err := c.abi.Pack(methodBuyEth, order.TokenAmount, order.MinEth, order.Destination)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err), apperror.WithContext("encode buyEth"))
	}

	var hash common.Hash
	if c.key != nil {
		hash, err = c.submitSigned(ctx, data)
	} else {
		hash, err = c.submitNode(ctx, order.Machine, data)
	}
	if err != nil {
		return nil, apperror.New(apperror.CodeSettlementFailed, apperror.WithCause(err), apperror.WithContext("submit buyEth"))
	}

	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))
	c.logger.Info(ctx, "buy settlement submitted", "tx", hash.Hex(), "mode", c.Mode(), "order", order.String())

	mined, err := c.waitReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}

	if mined.Status != types.ReceiptStatusSuccessful {
		return nil, apperror.New(apperror.CodeTransactionReverted,
			apperror.WithContext(fmt.Sprintf("tx %s reverted in block %s", hash.Hex(), mined.BlockNumber)))
	}

	receipt, err = c.decodeReceipt(mined)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("eth_amount", receipt.EthAmount.String()))
	span.SetStatus(codes.Ok, "settled")

	return receipt, nil
}

// submitNode lets the node sign with its unlocked machine account.
func (c *Client) submitNode(ctx context.Context, from common.Address, data []byte) (common.Hash, error) {
	args := map[string]any{
		"from": from,
		"to":   c.address,
		"data": hexutil.Bytes(data),
	}
	if c.gasLimit > 0 {
		args["gas"] = hexutil.Uint64(c.gasLimit)
	}

	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// submitSigned builds, signs and broadcasts an EIP-1559 transaction.
func (c *Client) submitSigned(ctx context.Context, data []byte) (common.Hash, error) {
	chainID, err := c.resolveChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id: %w", err)
	}

	from := c.Signer()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}

	estimate, err := c.gas.GetGasEstimate(ctx, from, c.address, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas estimate: %w", err)
	}

	tip, err := c.gas.GetGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas tip: %w", err)
	}

	// base fee may double before inclusion
	feeCap := new(big.Int).Mul(estimate.GasPrice.Wei, big.NewInt(2))
	feeCap.Add(feeCap, tip)

	to := c.address
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       estimate.GasLimit,
		To:        &to,
		Value:     new(big.Int),
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}

	c.logger.Debug(ctx, "signed settlement",
		"nonce", nonce,
		"gas", estimate.GasLimit,
		"fee_cap_gwei", blockchainDomain.NewGasPrice(feeCap).Gwei(),
	)
	return signed.Hash(), nil
}

func (c *Client) resolveChainID(ctx context.Context) (*big.Int, error) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()

	if c.chainID != nil {
		return c.chainID, nil
	}
	// failures are not cached so a later order can retry
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	c.chainID = id
	return id, nil
}

// waitReceipt polls until hash is mined or ctx ends.
func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		r, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.Warn(ctx, "receipt poll failed", "tx", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, apperror.New(apperror.CodeServiceTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext("waiting for receipt of "+hash.Hex()))
		case <-ticker.C:
		}
	}
}

// decodeReceipt finds the EthBought event emitted by the contract.
func (c *Client) decodeReceipt(r *types.Receipt) (*domain.Receipt, error) {
	event := c.abi.Events[eventEthBought]

	for _, lg := range r.Logs {
		if lg.Address != c.address || len(lg.Topics) < 2 || lg.Topics[0] != event.ID {
			continue
		}

		values, err := c.abi.Unpack(eventEthBought, lg.Data)
		if err != nil {
			return nil, apperror.New(apperror.CodeSettlementFailed, apperror.WithCause(err), apperror.WithContext("decode EthBought"))
		}
		if len(values) != 2 {
			return nil, apperror.New(apperror.CodeSettlementFailed, apperror.WithContext("EthBought has unexpected fields"))
		}
		tokens, ok1 := values[0].(*big.Int)
		eth, ok2 := values[1].(*big.Int)
		if !ok1 || !ok2 {
			return nil, apperror.New(apperror.CodeSettlementFailed, apperror.WithContext("EthBought has unexpected field types"))
		}

		var block uint64
		if r.BlockNumber != nil {
			block = r.BlockNumber.Uint64()
		}

		return &domain.Receipt{
			TxHash:      r.TxHash,
			BlockNumber: block,
			GasUsed:     r.GasUsed,
			Recipient:   common.BytesToAddress(lg.Topics[1].Bytes()),
			TokenAmount: tokens,
			EthAmount:   eth,
		}, nil
	}

	return nil, apperror.New(apperror.CodeSettlementFailed,
		apperror.WithContext("no EthBought event in tx "+r.TxHash.Hex()))
}
