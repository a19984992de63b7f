package app

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swapbox/business/settlement/domain"
	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/logger"
)

// MachineResolver finds the account that pays for settlements.
type MachineResolver func(ctx context.Context) (common.Address, error)

// StaticMachine resolves to a fixed address.
func StaticMachine(addr common.Address) MachineResolver {
	return func(context.Context) (common.Address, error) { return addr, nil }
}

// SettlementService builds buy orders for the machine account and hands
// them to the settlement contract client.
type SettlementService struct {
	settlement Settlement
	estimator  EthEstimator // nil disables the slippage pre-check
	resolve    MachineResolver
	logger     logger.LoggerInterface

	mu      sync.Mutex
	machine common.Address
}

func NewSettlementService(
	settlement Settlement,
	estimator EthEstimator,
	resolve MachineResolver,
	log logger.LoggerInterface,
) *SettlementService {
	return &SettlementService{
		settlement: settlement,
		estimator:  estimator,
		resolve:    resolve,
		logger:     log,
	}
}

// Machine returns the account paying for settlements. The first
// successful resolution is kept for the life of the process.
func (s *SettlementService) Machine(ctx context.Context) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine != (common.Address{}) {
		return s.machine, nil
	}

	addr, err := s.resolve(ctx)
	if err != nil {
		return common.Address{}, apperror.New(apperror.CodeSettlementFailed,
			apperror.WithCause(err),
			apperror.WithContext("resolve machine account"))
	}
	s.machine = addr
	return addr, nil
}

// BuyEth settles a buy of tokens whole tokens, delivering at least minEth
// wei to destination.
func (s *SettlementService) BuyEth(ctx context.Context, tokens, minEth *big.Int, destination common.Address) (*domain.Receipt, error) {
	machine, err := s.Machine(ctx)
	if err != nil {
		return nil, err
	}

	order, err := domain.NewBuyOrder(tokens, minEth, destination, machine)
	if err != nil {
		return nil, err
	}

	if s.estimator != nil {
		if err := s.checkSlippage(ctx, order); err != nil {
			return nil, err
		}
	}

	receipt, err := s.settlement.BuyEth(ctx, order)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "buy settled",
		"tx", receipt.TxHash.Hex(),
		"to", order.Destination.Hex(),
		"tokens", order.TokenAmount.String(),
		"eth", receipt.DeliveredEth().String(),
	)
	return receipt, nil
}

// checkSlippage rejects orders the pool cannot fill at min_eth right now,
// saving the gas of a reverting transaction.
func (s *SettlementService) checkSlippage(ctx context.Context, order domain.BuyOrder) error {
	expected, err := s.estimator.ExpectedEth(ctx, order.TokenAmount)
	if err != nil {
		return apperror.New(apperror.CodeSettlementFailed,
			apperror.WithCause(err),
			apperror.WithContext("slippage pre-check"))
	}
	if expected.Cmp(order.MinEth) < 0 {
		return apperror.New(apperror.CodeSlippageExceeded,
			apperror.WithContext("expected "+expected.String()+" wei < min "+order.MinEth.String()))
	}
	s.logger.Debug(ctx, "slippage pre-check passed", "expected_wei", expected.String(), "min_wei", order.MinEth.String())
	return nil
}
