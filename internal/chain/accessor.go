package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/equifund/backend/internal/metrics"
	"github.com/equifund/backend/internal/models"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const (
	contractToken    = "token"
	contractRegistry = "registry"
	contractPool     = "pool"
	contractSybil    = "sybil_guard"
)

// Backend is the RPC surface the accessor needs; *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// boundContract is implemented by *bind.BoundContract.
type boundContract interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// Addresses of the four EquiFund contracts.
type Addresses struct {
	Token      common.Address
	Registry   common.Address
	Pool       common.Address
	SybilGuard common.Address
}

type contract struct {
	name  string
	bound boundContract
}

// Accessor performs typed reads and writes against the EquiFund contracts.
type Accessor struct {
	backend        Backend
	addrs          Addresses
	token          *contract
	registry       *contract
	pool           *contract
	sybil          *contract
	confirmTimeout time.Duration
	log            *zap.Logger
}

func NewAccessor(backend Backend, addrs Addresses, confirmTimeout time.Duration, log *zap.Logger) (*Accessor, error) {
	bound := make(map[string]boundContract, 4)
	for name, def := range map[string]struct {
		addr common.Address
		abi  string
	}{
		contractToken:    {addrs.Token, tokenABI},
		contractRegistry: {addrs.Registry, registryABI},
		contractPool:     {addrs.Pool, poolABI},
		contractSybil:    {addrs.SybilGuard, sybilGuardABI},
	} {
		parsed, err := abi.JSON(strings.NewReader(def.abi))
		if err != nil {
			return nil, fmt.Errorf("parse %s abi: %w", name, err)
		}
		bound[name] = bind.NewBoundContract(def.addr, parsed, backend, backend, backend)
	}

	a := newAccessor(bound[contractToken], bound[contractRegistry], bound[contractPool], bound[contractSybil], addrs, log)
	a.backend = backend
	a.confirmTimeout = confirmTimeout
	return a, nil
}

func newAccessor(token, registry, pool, sybil boundContract, addrs Addresses, log *zap.Logger) *Accessor {
	return &Accessor{
		addrs:    addrs,
		token:    &contract{name: contractToken, bound: token},
		registry: &contract{name: contractRegistry, bound: registry},
		pool:     &contract{name: contractPool, bound: pool},
		sybil:    &contract{name: contractSybil, bound: sybil},
		log:      log,
	}
}

func (a *Accessor) Addresses() Addresses {
	return a.addrs
}

func (c *contract) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	start := time.Now()
	var out []interface{}
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, params...)
	metrics.RPCDuration.WithLabelValues(c.name, method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCCalls.WithLabelValues(c.name, method, "error").Inc()
		return nil, callError(c.name, method, err)
	}
	metrics.RPCCalls.WithLabelValues(c.name, method, "ok").Inc()
	return out, nil
}

func output[T any](c *contract, method string, out []interface{}, i int) (T, error) {
	var zero T
	if i >= len(out) {
		return zero, callError(c.name, method, fmt.Errorf("%w: missing output %d", ErrMalformed, i))
	}
	v, ok := out[i].(T)
	if !ok {
		return zero, callError(c.name, method, fmt.Errorf("%w: output %d is %T", ErrMalformed, i, out[i]))
	}
	return v, nil
}

func single[T any](ctx context.Context, c *contract, method string, params ...interface{}) (T, error) {
	out, err := c.call(ctx, method, params...)
	if err != nil {
		var zero T
		return zero, err
	}
	return output[T](c, method, out, 0)
}

func toInt64(c *contract, method string, v *big.Int) (int64, error) {
	if v == nil || !v.IsInt64() {
		return 0, callError(c.name, method, fmt.Errorf("%w: %v out of range", ErrMalformed, v))
	}
	return v.Int64(), nil
}

func toUint64(c *contract, method string, v *big.Int) (uint64, error) {
	if v == nil || !v.IsUint64() {
		return 0, callError(c.name, method, fmt.Errorf("%w: %v out of range", ErrMalformed, v))
	}
	return v.Uint64(), nil
}

func roundArg(id uint64) *big.Int {
	return new(big.Int).SetUint64(id)
}

// --- Token ---

func (a *Accessor) TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return single[*big.Int](ctx, a.token, "balanceOf", owner)
}

// TokenAllowance is the owner's allowance to the pool contract.
func (a *Accessor) TokenAllowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return single[*big.Int](ctx, a.token, "allowance", owner, a.addrs.Pool)
}

// --- Registry ---

func (a *Accessor) RegistryOwner(ctx context.Context) (common.Address, error) {
	return single[common.Address](ctx, a.registry, "owner")
}

func (a *Accessor) ActiveProjects(ctx context.Context) ([]common.Address, error) {
	return single[[]common.Address](ctx, a.registry, "getActiveProjects")
}

func (a *Accessor) AllProjects(ctx context.Context) ([]common.Address, error) {
	return single[[]common.Address](ctx, a.registry, "getAllProjects")
}

func (a *Accessor) IsProjectRegistered(ctx context.Context, project common.Address) (bool, error) {
	return single[bool](ctx, a.registry, "isProjectRegistered", project)
}

// projectTuple matches the field names of the ProjectRegistry.Project struct.
type projectTuple struct {
	ProjectAddress common.Address
	Name           string
	Description    string
	MetadataURI    string
	IsActive       bool
	RegisteredAt   *big.Int
}

func (a *Accessor) Project(ctx context.Context, project common.Address) (models.ProjectRecord, error) {
	const method = "getProject"
	out, err := a.registry.call(ctx, method, project)
	if err != nil {
		return models.ProjectRecord{}, err
	}
	if len(out) == 0 {
		return models.ProjectRecord{}, callError(a.registry.name, method, ErrMalformed)
	}

	t, err := convertTuple(out[0])
	if err != nil {
		return models.ProjectRecord{}, callError(a.registry.name, method, err)
	}
	registeredAt, err := toInt64(a.registry, method, t.RegisteredAt)
	if err != nil {
		return models.ProjectRecord{}, err
	}

	return models.ProjectRecord{
		Address:      t.ProjectAddress,
		Name:         t.Name,
		Description:  t.Description,
		MetadataURI:  t.MetadataURI,
		IsActive:     t.IsActive,
		RegisteredAt: registeredAt,
	}, nil
}

// convertTuple wraps abi.ConvertType, which panics on a shape mismatch.
func convertTuple(in interface{}) (t projectTuple, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()
	t = *abi.ConvertType(in, new(projectTuple)).(*projectTuple)
	return t, nil
}

// --- Pool ---

func (a *Accessor) PoolOwner(ctx context.Context) (common.Address, error) {
	return single[common.Address](ctx, a.pool, "owner")
}

// CurrentRoundID returns 0 when no round has been created.
func (a *Accessor) CurrentRoundID(ctx context.Context) (uint64, error) {
	id, err := single[*big.Int](ctx, a.pool, "currentRoundId")
	if err != nil {
		return 0, err
	}
	return toUint64(a.pool, "currentRoundId", id)
}

func (a *Accessor) RoundStats(ctx context.Context, roundID uint64) (models.RoundStats, error) {
	const method = "getRoundStats"
	out, err := a.pool.call(ctx, method, roundArg(roundID))
	if err != nil {
		return models.RoundStats{}, err
	}

	var nums [5]*big.Int
	for i := range nums {
		if nums[i], err = output[*big.Int](a.pool, method, out, i); err != nil {
			return models.RoundStats{}, err
		}
	}
	finalized, err := output[bool](a.pool, method, out, 5)
	if err != nil {
		return models.RoundStats{}, err
	}

	start, err := toInt64(a.pool, method, nums[0])
	if err != nil {
		return models.RoundStats{}, err
	}
	end, err := toInt64(a.pool, method, nums[1])
	if err != nil {
		return models.RoundStats{}, err
	}
	contributors, err := toUint64(a.pool, method, nums[4])
	if err != nil {
		return models.RoundStats{}, err
	}

	return models.RoundStats{
		StartTime:          start,
		EndTime:            end,
		MatchingPool:       nums[2],
		TotalContributions: nums[3],
		TotalContributors:  contributors,
		Finalized:          finalized,
	}, nil
}

func (a *Accessor) RoundProjects(ctx context.Context, roundID uint64) ([]common.Address, error) {
	return single[[]common.Address](ctx, a.pool, "getRoundProjects", roundArg(roundID))
}

func (a *Accessor) MatchingPoolBalance(ctx context.Context) (*big.Int, error) {
	return single[*big.Int](ctx, a.pool, "matchingPoolBalance")
}

func (a *Accessor) ProjectTotalContributions(ctx context.Context, roundID uint64, project common.Address) (*big.Int, error) {
	return single[*big.Int](ctx, a.pool, "projectTotalContributions", roundArg(roundID), project)
}

func (a *Accessor) ProjectMatchAmount(ctx context.Context, roundID uint64, project common.Address) (*big.Int, error) {
	return single[*big.Int](ctx, a.pool, "projectMatchAmount", roundArg(roundID), project)
}

func (a *Accessor) DonorContribution(ctx context.Context, roundID uint64, donor, project common.Address) (*big.Int, error) {
	return single[*big.Int](ctx, a.pool, "getDonorContribution", roundArg(roundID), donor, project)
}

// --- Sybil guard ---

func (a *Accessor) CanContribute(ctx context.Context, donor common.Address) (bool, error) {
	return single[bool](ctx, a.sybil, "canContribute", donor)
}

// TimeUntilNextContribution is in seconds.
func (a *Accessor) TimeUntilNextContribution(ctx context.Context, donor common.Address) (int64, error) {
	v, err := single[*big.Int](ctx, a.sybil, "timeUntilNextContribution", donor)
	if err != nil {
		return 0, err
	}
	return toInt64(a.sybil, "timeUntilNextContribution", v)
}

func (a *Accessor) CooldownPeriod(ctx context.Context) (int64, error) {
	v, err := single[*big.Int](ctx, a.sybil, "getCooldownPeriod")
	if err != nil {
		return 0, err
	}
	return toInt64(a.sybil, "getCooldownPeriod", v)
}

// ChainID is the network the RPC node is connected to.
func (a *Accessor) ChainID(ctx context.Context) (*big.Int, error) {
	if a.backend == nil {
		return nil, callError("node", "eth_chainId", ErrNotConnected)
	}
	id, err := a.backend.ChainID(ctx)
	if err != nil {
		return nil, callError("node", "eth_chainId", err)
	}
	return id, nil
}
