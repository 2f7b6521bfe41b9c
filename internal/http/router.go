package http

import (
	"time"

	"github.com/equifund/backend/internal/config"
	"github.com/equifund/backend/internal/http/handlers"
	"github.com/equifund/backend/internal/middleware"
	"github.com/equifund/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Meta    *handlers.MetaHandler
	Round   *handlers.RoundHandler
	Project *handlers.ProjectHandler
	Account *handlers.AccountHandler
	Wallet  *handlers.WalletHandler
	Action  *handlers.ActionHandler
	Admin   *handlers.AdminHandler
	WS      *handlers.WSHub
}

func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(middleware.MetricsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": h.WS.Clients()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Public reads
	api.Get("/meta", h.Meta.GetMeta)
	api.Get("/round", h.Round.GetRound)
	api.Get("/projects", h.Project.ListProjects)
	api.Get("/projects/:address", h.Project.GetProject)
	api.Get("/projects/:address/metadata", h.Project.GetMetadata)
	api.Get("/accounts/:address", h.Account.GetAccount)
	api.Get("/accounts/:address/contributions/:project", h.Account.GetContribution)
	api.Get("/wallet", h.Wallet.GetWallet)
	api.Get("/wallet/eligibility", h.Wallet.GetEligibility)

	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, log))

	// Donor actions
	protected.Post("/actions/approve", middleware.RequirePermission(rbac.PermContribute), h.Action.Approve)
	protected.Post("/actions/contribute", middleware.RequirePermission(rbac.PermContribute), h.Action.Contribute)
	protected.Get("/actions/state", h.Action.GetStates)
	protected.Get("/actions", middleware.RequirePermission(rbac.PermViewJournal), h.Action.ListActions)

	// Owner actions
	admin := protected.Group("/admin")
	admin.Post("/rounds", middleware.RequirePermission(rbac.PermManageRounds), h.Admin.CreateRound)
	admin.Post("/rounds/finalize", middleware.RequirePermission(rbac.PermManageRounds), h.Admin.FinalizeRound)
	admin.Post("/matching-funds", middleware.RequirePermission(rbac.PermManageFunding), h.Admin.AddMatchingFunds)
	admin.Get("/projects", middleware.RequirePermission(rbac.PermManageProject), h.Project.ListAllProjects)
	admin.Post("/projects", middleware.RequirePermission(rbac.PermManageProject), h.Admin.RegisterProject)
	admin.Put("/projects/:address", middleware.RequirePermission(rbac.PermManageProject), h.Admin.UpdateProject)
	admin.Post("/projects/:address/toggle", middleware.RequirePermission(rbac.PermManageProject), h.Admin.ToggleProject)
	admin.Delete("/projects/:address", middleware.RequirePermission(rbac.PermManageProject), h.Admin.RemoveProject)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(h.WS.HandleWS))
}
