package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/custody-vault/internal/auth"
	"github.com/congo-pay/custody-vault/internal/config"
	"github.com/congo-pay/custody-vault/internal/funding"
	"github.com/congo-pay/custody-vault/internal/identity"
	"github.com/congo-pay/custody-vault/internal/metrics"
	"github.com/congo-pay/custody-vault/internal/middleware"
	"github.com/congo-pay/custody-vault/internal/payments"
	"github.com/congo-pay/custody-vault/internal/token"
	"github.com/congo-pay/custody-vault/internal/vault"
	"github.com/congo-pay/custody-vault/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence in production, even though config also checks.
	if d.Cfg.IsProduction() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	core, err := buildCustody(ctx, d)
	if err != nil {
		return err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if !d.Cfg.IsProduction() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}

	// Health and metrics
	RegisterHealthRoutes(app, d, core.vault)
	app.Get("/metrics", adaptor.HTTPHandler(core.metrics.Handler()))

	// Repositories
	var (
		walletRepo   wallet.Repository
		identityRepo identity.Repository
	)
	if d.DB != nil {
		wr := wallet.NewPostgresRepository(d.DB)
		ir := identity.NewPostgresRepository(d.DB)
		if err := ir.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate users: %w", err)
		}
		if err := wr.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate wallets: %w", err)
		}
		walletRepo, identityRepo = wr, ir
	} else {
		walletRepo = wallet.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
	}

	// Services and handlers
	bank := core.chain.Bank()
	walletSvc := wallet.NewService(walletRepo, bank, core.vault)
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	paymentSvc := payments.NewService(core.chain, core.vault, walletSvc, core.notifier)
	fundingSvc, err := funding.NewService(core.chain, bank, walletSvc, nil, d.Cfg.NativeDecimals)
	if err != nil {
		return err
	}

	authHandler := auth.NewHandler(identitySvc, authSvc, walletSvc)
	identityHandler := identity.NewHandler(identitySvc)
	walletHandler := wallet.NewHandler(walletSvc, d.Cfg.NativeDecimals)
	fundingHandler := funding.NewHandler(fundingSvc)
	paymentHandler := payments.NewHandler(paymentSvc)
	vaultHandler := vault.NewHandler(core.vault, core.chain)
	tokenHandler := token.NewHandler(core.chain)

	listed := map[string]string{core.vault.Symbol(): core.vault.Address().Hex()}
	for symbol, addr := range core.tokens {
		listed[symbol] = addr.Hex()
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"vault":      core.vault.Address().Hex(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identitySvc, identityHandler, walletSvc, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, d.Cfg.LoginWindow)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	RegisterVaultQueryRoutes(api, vaultHandler)
	RegisterTokenQueryRoutes(api, tokenHandler, listed)

	// Protected routes. The group's middleware is mounted on the whole prefix,
	// so it must be created after every public route. The session is bound
	// before idempotency keys are scoped to it.
	protected := api.Group("", middleware.JWTAuth(authSvc), middleware.Audit(d.Logger), middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/me", identityHandler.Me)
	RegisterWalletMeRoute(protected, walletSvc, walletHandler, identitySvc)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterFundingRoutes(protected, fundingHandler)
	RegisterPaymentRoutes(protected, paymentHandler)
	RegisterVaultRoutes(protected, vaultHandler)
	RegisterTokenRoutes(protected, tokenHandler, !d.Cfg.IsProduction())

	return nil
}
