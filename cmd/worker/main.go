package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/equifund/backend/internal/app"
	"github.com/equifund/backend/internal/config"
	"github.com/equifund/backend/internal/db"
	"github.com/equifund/backend/internal/metadata"
	"github.com/equifund/backend/internal/query"
	"github.com/equifund/backend/internal/repositories"
	"go.uber.org/zap"
)

const (
	roundInterval    = 30 * time.Second
	projectsInterval = 45 * time.Second
	pruneInterval    = time.Hour
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if err := cfg.Validate(log); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	actionRepo := repositories.NewActionRepo(pool)

	core, err := app.NewCore(ctx, cfg, app.Options{Redis: rdb}, log)
	if err != nil {
		log.Fatal("failed to start chain access", zap.Error(err))
	}
	defer core.Close()

	fetcher := metadata.NewFetcher(cfg.MetadataFetchTimeoutMS, cfg.MetadataFetchMaxRetries, cfg.IPFSGateway, core.Store, log)

	log.Info("worker started")
	if _, err := core.Query.Refresh(ctx); err != nil {
		log.Warn("initial refresh failed", zap.Error(err))
	}

	// Run jobs on tickers
	roundTicker := time.NewTicker(roundInterval)
	projectsTicker := time.NewTicker(projectsInterval)
	pruneTicker := time.NewTicker(pruneInterval)
	defer roundTicker.Stop()
	defer projectsTicker.Stop()
	defer pruneTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-roundTicker.C:
			runRoundRefresh(ctx, core.Query, log)
		case <-projectsTicker.C:
			runProjectsRefresh(ctx, core.Query, fetcher, log)
		case <-pruneTicker.C:
			runJournalPrune(ctx, actionRepo, cfg.JournalRetention, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runRoundRefresh(ctx context.Context, q *query.Service, log *zap.Logger) {
	if err := q.Invalidate(ctx, query.RoundKey); err != nil {
		log.Warn("failed to invalidate round", zap.Error(err))
	}
	round, err := q.Round(ctx)
	if err != nil {
		log.Error("failed to refresh round", zap.Error(err))
		return
	}
	log.Debug("round refreshed", zap.Uint64("round_id", round.ID), zap.Int("projects", len(round.Projects)))
}

// runProjectsRefresh reloads the project list of the current round and warms the
// metadata previews of its projects.
func runProjectsRefresh(ctx context.Context, q *query.Service, fetcher *metadata.Fetcher, log *zap.Logger) {
	round, err := q.Round(ctx)
	if err != nil {
		log.Error("failed to load round", zap.Error(err))
		return
	}
	if err := q.Invalidate(ctx, query.ProjectsKey(round.ID)); err != nil {
		log.Warn("failed to invalidate projects", zap.Error(err))
	}
	projects, err := q.Projects(ctx, round.ID)
	if err != nil {
		log.Error("failed to refresh projects", zap.Uint64("round_id", round.ID), zap.Error(err))
		return
	}

	for _, p := range projects {
		if p.MetadataURI == "" {
			continue
		}
		if _, err := fetcher.Fetch(ctx, p.MetadataURI); err != nil {
			log.Warn("failed to warm project metadata",
				zap.String("project", p.Address.Hex()),
				zap.String("uri", p.MetadataURI),
				zap.Error(err),
			)
		}
	}
}

func runJournalPrune(ctx context.Context, repo *repositories.ActionRepo, retention time.Duration, log *zap.Logger) {
	if retention <= 0 {
		return
	}
	n, err := repo.PruneOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		log.Error("failed to prune action journal", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("action journal pruned", zap.Int64("rows", n))
	}
}
