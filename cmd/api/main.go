package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/equifund/backend/internal/app"
	"github.com/equifund/backend/internal/config"
	"github.com/equifund/backend/internal/db"
	"github.com/equifund/backend/internal/events"
	apphttp "github.com/equifund/backend/internal/http"
	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/http/handlers"
	"github.com/equifund/backend/internal/metadata"
	"github.com/equifund/backend/internal/repositories"
	"github.com/equifund/backend/migrations"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
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

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	actionRepo := repositories.NewActionRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	core, err := app.NewCore(ctx, cfg, app.Options{Redis: rdb, Journal: actionRepo, Publisher: publisher}, log)
	if err != nil {
		log.Fatal("failed to start chain access", zap.Error(err))
	}
	defer core.Close()

	fetcher := metadata.NewFetcher(cfg.MetadataFetchTimeoutMS, cfg.MetadataFetchMaxRetries, cfg.IPFSGateway, core.Store, log)

	// Handlers
	wsHub := handlers.NewWSHub(cfg.JWTSecret, subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to action events", zap.Error(err))
	}

	h := apphttp.Handlers{
		Meta:    handlers.NewMetaHandler(cfg.ChainID, core.Addresses, core.Session.Connected()),
		Round:   handlers.NewRoundHandler(core.Query, log),
		Project: handlers.NewProjectHandler(core.Query, fetcher, log),
		Account: handlers.NewAccountHandler(core.Query, core.Donor, log),
		Wallet:  handlers.NewWalletHandler(core.Donor, log),
		Action:  handlers.NewActionHandler(core.Donor, core.Orchestrator, actionRepo, log),
		Admin:   handlers.NewAdminHandler(core.Admin, log),
		WS:      wsHub,
	}

	// Fiber app
	server := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
		},
	})

	apphttp.SetupRouter(server, cfg, log, rdb, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = server.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := server.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
