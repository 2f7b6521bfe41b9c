package services

import (
	"context"
	"math/big"

	"github.com/equifund/backend/internal/models"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Reads is the cached read side; *query.Service satisfies it.
type Reads interface {
	Round(ctx context.Context) (models.Round, error)
	Project(ctx context.Context, project common.Address, roundID uint64) (models.Project, error)
	TokenAccount(ctx context.Context, owner common.Address) (models.TokenAccount, error)
	Sybil(ctx context.Context, donor common.Address) (models.SybilStatus, error)
	DonorContribution(ctx context.Context, donor, project common.Address, roundID uint64) (*big.Int, error)
	PoolOwner(ctx context.Context) (common.Address, error)
	RegistryOwner(ctx context.Context) (common.Address, error)
}

// Writer is the contract write side plus the uncached reads that must be fresh
// before a write; *chain.Accessor satisfies it.
type Writer interface {
	ChainID(ctx context.Context) (*big.Int, error)
	TokenAllowance(ctx context.Context, owner common.Address) (*big.Int, error)
	IsProjectRegistered(ctx context.Context, project common.Address) (bool, error)

	Approve(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error)
	Contribute(opts *bind.TransactOpts, project common.Address, amount *big.Int) (*types.Transaction, error)
	CreateRound(opts *bind.TransactOpts, durationSeconds int64) (*types.Transaction, error)
	AddMatchingFunds(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error)
	FinalizeRound(opts *bind.TransactOpts) (*types.Transaction, error)
	RegisterProject(opts *bind.TransactOpts, project common.Address, name, description, metadataURI string) (*types.Transaction, error)
	UpdateProject(opts *bind.TransactOpts, project common.Address, name, description, metadataURI string) (*types.Transaction, error)
	ToggleProjectStatus(opts *bind.TransactOpts, project common.Address) (*types.Transaction, error)
	RemoveProject(opts *bind.TransactOpts, project common.Address) (*types.Transaction, error)
}

// Session is the connected wallet; *wallet.Session satisfies it.
type Session interface {
	Connected() bool
	Address() common.Address
	ChainID() *big.Int
	WrongNetwork(nodeChainID *big.Int) bool
}
