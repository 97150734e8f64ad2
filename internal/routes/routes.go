package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Belladihno/paystack-wallet-service/internal/apikey"
	"github.com/Belladihno/paystack-wallet-service/internal/config"
	"github.com/Belladihno/paystack-wallet-service/internal/gateway"
	"github.com/Belladihno/paystack-wallet-service/internal/ledger"
	"github.com/Belladihno/paystack-wallet-service/internal/middleware"
	"github.com/Belladihno/paystack-wallet-service/internal/reconcile"
	"github.com/Belladihno/paystack-wallet-service/internal/sweeper"
	"github.com/Belladihno/paystack-wallet-service/internal/user"
	"github.com/Belladihno/paystack-wallet-service/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores and repositories
	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
	}

	var userRepo user.Repository
	if d.DB != nil {
		userRepo = user.NewPostgresRepository(d.DB)
	} else {
		userRepo = user.NewMemoryRepository()
	}

	var keyRepo apikey.Repository
	if d.DB != nil {
		keyRepo = apikey.NewPostgresRepository(d.DB)
	} else {
		keyRepo = apikey.NewMemoryRepository()
	}

	// Services and handlers
	var gw gateway.Gateway
	if d.Cfg.PaystackSecretKey != "" {
		gw = gateway.NewPaystackClient(d.Cfg.PaystackBaseURL, d.Cfg.PaystackSecretKey, d.Cfg.GatewayTimeout)
	} else {
		gw = gateway.StaticGateway{}
	}

	walletSvc := wallet.NewService(store, gw, wallet.Config{
		DepositMin:     d.Cfg.DepositMin,
		DepositMax:     d.Cfg.DepositMax,
		DedupWindow:    d.Cfg.DepositDedupWindow,
		GatewayTimeout: d.Cfg.GatewayTimeout,
		CallbackURL:    d.Cfg.DepositCallbackURL,
	}, d.Logger)
	userSvc := user.NewService(userRepo, store)
	keySvc := apikey.NewService(keyRepo)
	reconcileSvc := reconcile.NewService(store, d.Logger)
	sweepSvc := sweeper.NewService(store, keyRepo, d.Cfg.PendingMaxAge, d.Logger)

	walletHandler := wallet.NewHandler(walletSvc)
	userHandler := user.NewHandler(userSvc)
	keyHandler := apikey.NewHandler(keySvc)
	webhookHandler := reconcile.NewHandler(reconcileSvc, d.Cfg.PaystackSecretKey)
	sweepHandler := sweeper.NewHandler(sweepSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes. The webhook authenticates by signature and the checkout
	// callback is a browser redirect; neither carries credentials or an
	// Idempotency-Key header.
	api.Post("/wallet/paystack/webhook", webhookHandler.HandleWebhook)
	api.Get("/wallet/deposit/callback", walletHandler.DepositCallback)
	api.Post("/users", userHandler.Provision)

	// Protected routes
	authed := api.Group("", middleware.Auth(keySvc, userRepo))
	authed.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		authed.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	authed.Post("/wallet/deposit",
		middleware.RequirePermission(apikey.PermissionDeposit),
		middleware.DepositRateLimit(d.Cache, 5),
		walletHandler.Deposit)
	authed.Get("/wallet/deposit/:reference/status",
		middleware.RequirePermission(apikey.PermissionRead),
		walletHandler.DepositStatus)
	authed.Get("/wallet/balance",
		middleware.RequirePermission(apikey.PermissionRead),
		walletHandler.Balance)
	authed.Post("/wallet/transfer",
		middleware.RequirePermission(apikey.PermissionTransfer),
		walletHandler.Transfer)
	authed.Get("/wallet/transactions",
		middleware.RequirePermission(apikey.PermissionRead),
		walletHandler.Transactions)

	authed.Post("/keys", keyHandler.Create)
	authed.Post("/keys/rollover", keyHandler.Rollover)
	authed.Delete("/keys/:id", keyHandler.Revoke)
	authed.Get("/keys", keyHandler.List)

	authed.Get("/users", userHandler.List)
	authed.Get("/users/:id", userHandler.Get)

	authed.Post("/admin/sweeps/pending-transactions", sweepHandler.SweepTransactions)
	authed.Post("/admin/sweeps/expired-keys", sweepHandler.SweepAPIKeys)

	return nil
}
