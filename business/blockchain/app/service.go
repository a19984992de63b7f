// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swapbox/business/blockchain/domain"
	"github.com/fd1az/swapbox/internal/apperror"
)

// BlockchainService coordinates blockchain interactions.
type BlockchainService struct {
	monitor   NodeHealthOracle
	gasOracle GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(monitor NodeHealthOracle, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		monitor:   monitor,
		gasOracle: gasOracle,
	}
}

// Status returns the current node status.
func (s *BlockchainService) Status(ctx context.Context) (domain.NodeStatus, error) {
	return s.monitor.Status(ctx)
}

// GetGasPrice retrieves the current gas price.
func (s *BlockchainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

// MachineAccount returns configured when set, otherwise the node's first account.
func (s *BlockchainService) MachineAccount(ctx context.Context, configured common.Address) (common.Address, error) {
	if configured != (common.Address{}) {
		return configured, nil
	}

	accounts, err := s.monitor.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("node has no unlocked accounts and settlement.machine_address is empty"))
	}
	return accounts[0], nil
}
