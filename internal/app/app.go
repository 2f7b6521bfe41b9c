// Package app wires the chain accessor, cached reads and write services from config.
package app

import (
	"context"
	"fmt"

	"github.com/equifund/backend/internal/cache"
	"github.com/equifund/backend/internal/chain"
	"github.com/equifund/backend/internal/config"
	"github.com/equifund/backend/internal/events"
	"github.com/equifund/backend/internal/flow"
	"github.com/equifund/backend/internal/query"
	"github.com/equifund/backend/internal/services"
	"github.com/equifund/backend/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options are the optional collaborators. A nil Redis client forces the in-process cache.
type Options struct {
	Redis     *redis.Client
	Journal   flow.Journal
	Publisher events.Publisher
}

type Core struct {
	Addresses    chain.Addresses
	Node         *ethclient.Client
	Accessor     *chain.Accessor
	Session      *wallet.Session
	Store        cache.Store
	Query        *query.Service
	Orchestrator *flow.Orchestrator
	Donor        *services.DonorService
	Admin        *services.AdminService

	closers []func()
}

func ParseAddresses(cfg *config.Config) (chain.Addresses, error) {
	var addrs chain.Addresses
	for _, f := range []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"TOKEN_ADDRESS", cfg.TokenAddress, &addrs.Token},
		{"REGISTRY_ADDRESS", cfg.RegistryAddress, &addrs.Registry},
		{"POOL_ADDRESS", cfg.PoolAddress, &addrs.Pool},
		{"SYBIL_GUARD_ADDRESS", cfg.SybilGuardAddress, &addrs.SybilGuard},
	} {
		a, err := chain.ParseAddress(f.raw)
		if err != nil {
			return chain.Addresses{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = a
	}
	return addrs, nil
}

func NewCore(ctx context.Context, cfg *config.Config, opts Options, log *zap.Logger) (*Core, error) {
	addrs, err := ParseAddresses(cfg)
	if err != nil {
		return nil, err
	}

	session, err := wallet.NewSession(cfg.WalletPrivateKey, cfg.ChainID)
	if err != nil {
		return nil, err
	}

	node, err := chain.Dial(ctx, cfg.RPCURL, log)
	if err != nil {
		return nil, err
	}
	core := &Core{Addresses: addrs, Node: node, Session: session}
	core.closers = append(core.closers, node.Close)

	core.Accessor, err = chain.NewAccessor(node, addrs, cfg.ConfirmTimeout, log)
	if err != nil {
		core.Close()
		return nil, err
	}

	if core.Store, err = newStore(ctx, cfg, opts.Redis, log); err != nil {
		core.Close()
		return nil, err
	}
	if m, ok := core.Store.(*cache.MemoryStore); ok {
		core.closers = append(core.closers, func() { _ = m.Close() })
	}

	core.Query = query.NewService(core.Accessor, core.Store, log)
	core.Orchestrator = flow.NewOrchestrator(session, core.Accessor, core.Query, opts.Journal, opts.Publisher, log)
	core.Donor = services.NewDonorService(core.Query, core.Accessor, session, core.Orchestrator, log)
	core.Admin = services.NewAdminService(core.Query, core.Accessor, session, core.Orchestrator, log)

	if session.Connected() {
		log.Info("wallet session ready", zap.String("address", session.Address().Hex()))
	}
	return core, nil
}

func newStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.Logger) (cache.Store, error) {
	if cfg.CacheBackend == config.CacheBackendRedis && rdb != nil {
		return cache.NewRedisStore(rdb, log), nil
	}
	if cfg.CacheBackend == config.CacheBackendRedis {
		log.Warn("redis unavailable, using in-process cache")
	}
	m, err := cache.NewMemoryStore(ctx, log)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
