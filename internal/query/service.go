// Package query serves the cached read models: each one is a set of contract reads with
// its own freshness window, dropped early when a write makes it stale.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/equifund/backend/internal/cache"
	"github.com/equifund/backend/internal/metrics"
	"github.com/equifund/backend/internal/models"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var ErrProjectNotFound = errors.New("project not found")

// Reader is the subset of chain.Accessor the read models use.
type Reader interface {
	TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	TokenAllowance(ctx context.Context, owner common.Address) (*big.Int, error)
	RegistryOwner(ctx context.Context) (common.Address, error)
	ActiveProjects(ctx context.Context) ([]common.Address, error)
	AllProjects(ctx context.Context) ([]common.Address, error)
	Project(ctx context.Context, project common.Address) (models.ProjectRecord, error)
	PoolOwner(ctx context.Context) (common.Address, error)
	CurrentRoundID(ctx context.Context) (uint64, error)
	RoundStats(ctx context.Context, roundID uint64) (models.RoundStats, error)
	RoundProjects(ctx context.Context, roundID uint64) ([]common.Address, error)
	MatchingPoolBalance(ctx context.Context) (*big.Int, error)
	ProjectTotalContributions(ctx context.Context, roundID uint64, project common.Address) (*big.Int, error)
	ProjectMatchAmount(ctx context.Context, roundID uint64, project common.Address) (*big.Int, error)
	DonorContribution(ctx context.Context, roundID uint64, donor, project common.Address) (*big.Int, error)
	CanContribute(ctx context.Context, donor common.Address) (bool, error)
	TimeUntilNextContribution(ctx context.Context, donor common.Address) (int64, error)
	CooldownPeriod(ctx context.Context) (int64, error)
}

type Service struct {
	reader Reader
	store  cache.Store
	log    *zap.Logger
}

func NewService(reader Reader, store cache.Store, log *zap.Logger) *Service {
	return &Service{reader: reader, store: store, log: log}
}

// load returns the cached value for key or fetches and stores it. Cache failures degrade
// to a direct fetch.
func load[T any](ctx context.Context, s *Service, model, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	raw, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheLookups.WithLabelValues(model, "hit").Inc()
			return v, nil
		}
		s.log.Warn("discarding undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, cache.ErrMiss):
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	metrics.CacheLookups.WithLabelValues(model, "miss").Inc()

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if raw, err := json.Marshal(v); err != nil {
		s.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
	} else if err := s.store.Set(ctx, key, raw, ttl); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// Invalidate drops every cached entry under the given prefixes.
func (s *Service) Invalidate(ctx context.Context, prefixes ...string) error {
	var errs []error
	for _, p := range prefixes {
		n, err := s.store.DeletePrefix(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", p, err))
			continue
		}
		metrics.CacheInvalidations.Inc()
		s.log.Debug("cache invalidated", zap.String("prefix", p), zap.Int("keys", n))
	}
	return errors.Join(errs...)
}

// Refresh reloads the round and its project list, replacing whatever is cached.
func (s *Service) Refresh(ctx context.Context) (models.Round, error) {
	if err := s.Invalidate(ctx, RoundKey); err != nil {
		s.log.Warn("refresh invalidate failed", zap.Error(err))
	}
	round, err := s.Round(ctx)
	if err != nil {
		return models.Round{}, err
	}
	if err := s.Invalidate(ctx, ProjectsKey(round.ID)); err != nil {
		s.log.Warn("refresh invalidate failed", zap.Error(err))
	}
	if _, err := s.Projects(ctx, round.ID); err != nil {
		return round, err
	}
	return round, nil
}
