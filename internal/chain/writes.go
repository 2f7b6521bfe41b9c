package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/equifund/backend/internal/metrics"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

func (c *contract) transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	if opts == nil {
		return nil, callError(c.name, method, ErrNotConnected)
	}
	tx, err := c.bound.Transact(opts, method, params...)
	if err != nil {
		metrics.RPCCalls.WithLabelValues(c.name, method, "rejected").Inc()
		return nil, callError(c.name, method, err)
	}
	metrics.RPCCalls.WithLabelValues(c.name, method, "submitted").Inc()
	return tx, nil
}

// Approve sets the pool's USDC allowance for the signer.
func (a *Accessor) Approve(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	return a.token.transact(opts, "approve", a.addrs.Pool, amount)
}

func (a *Accessor) RegisterProject(opts *bind.TransactOpts, project common.Address, name, description, metadataURI string) (*types.Transaction, error) {
	return a.registry.transact(opts, "registerProject", project, name, description, metadataURI)
}

func (a *Accessor) UpdateProject(opts *bind.TransactOpts, project common.Address, name, description, metadataURI string) (*types.Transaction, error) {
	return a.registry.transact(opts, "updateProject", project, name, description, metadataURI)
}

func (a *Accessor) ToggleProjectStatus(opts *bind.TransactOpts, project common.Address) (*types.Transaction, error) {
	return a.registry.transact(opts, "toggleProjectStatus", project)
}

func (a *Accessor) RemoveProject(opts *bind.TransactOpts, project common.Address) (*types.Transaction, error) {
	return a.registry.transact(opts, "removeProject", project)
}

func (a *Accessor) CreateRound(opts *bind.TransactOpts, durationSeconds int64) (*types.Transaction, error) {
	return a.pool.transact(opts, "createRound", big.NewInt(durationSeconds))
}

func (a *Accessor) AddMatchingFunds(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	return a.pool.transact(opts, "addMatchingFunds", amount)
}

func (a *Accessor) FinalizeRound(opts *bind.TransactOpts) (*types.Transaction, error) {
	return a.pool.transact(opts, "finalizeRound")
}

func (a *Accessor) Contribute(opts *bind.TransactOpts, project common.Address, amount *big.Int) (*types.Transaction, error) {
	return a.pool.transact(opts, "contribute", project, amount)
}

// WaitConfirmed blocks until tx is mined. A mined but failed transaction is ErrReverted.
func (a *Accessor) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if a.backend == nil {
		return nil, callError("node", "waitMined", ErrNotConnected)
	}
	if a.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.confirmTimeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(ctx, a.backend, tx)
	if err != nil {
		return nil, callError("node", "waitMined", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		a.log.Warn("transaction reverted",
			zap.String("tx_hash", tx.Hash().Hex()),
			zap.Uint64("block", receipt.BlockNumber.Uint64()),
		)
		return receipt, callError("node", "waitMined", fmt.Errorf("%w: %s", ErrReverted, tx.Hash().Hex()))
	}
	return receipt, nil
}
