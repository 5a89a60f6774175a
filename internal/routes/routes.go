package routes

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/congo-pay/qrwallet/internal/auth"
	"github.com/congo-pay/qrwallet/internal/config"
	"github.com/congo-pay/qrwallet/internal/identity"
	"github.com/congo-pay/qrwallet/internal/ledger"
	"github.com/congo-pay/qrwallet/internal/lock"
	"github.com/congo-pay/qrwallet/internal/middleware"
	"github.com/congo-pay/qrwallet/internal/notification"
	"github.com/congo-pay/qrwallet/internal/payments"
	"github.com/congo-pay/qrwallet/internal/requests"
	"github.com/congo-pay/qrwallet/internal/transfer"
	"github.com/congo-pay/qrwallet/internal/uow"
	"github.com/congo-pay/qrwallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *zap.Logger
}

// Setup configures middlewares and all application routes. Without a
// database the stores run in memory; without Redis the request lock,
// status cache and idempotency layer are skipped.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(logger))

	RegisterHealthRoutes(app, d)

	var (
		accounts ledger.Store
		store    requests.Store
		users    identity.Repository
		unit     uow.UnitOfWork
	)
	if d.DB != nil {
		accounts = ledger.NewPostgresStore(d.DB)
		store = requests.NewPostgresStore(d.DB)
		users = identity.NewPostgresRepository(d.DB)
		unit = uow.NewPostgres(d.DB)
	} else {
		logger.Warn("running with in-memory stores")
		accounts = ledger.NewInMemory()
		store = requests.NewInMemory()
		users = identity.NewMemoryRepository()
		unit = uow.NewMemory()
	}

	notifier := notification.NewLoggerNotifier(logger)
	engine := transfer.NewEngine(accounts, unit, logger)
	identitySvc := identity.NewService(users, accounts, unit, logger)
	authSvc := auth.NewService(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	walletSvc := wallet.NewService(accounts, engine, identitySvc, notifier, logger)

	opts := payments.Options{
		Logger:     logger,
		Notifier:   notifier,
		DefaultTTL: d.Cfg.RequestTTL,
		MaxTTL:     d.Cfg.RequestMaxTTL,
		BaseURL:    d.Cfg.PublicBaseURL,
	}
	if d.Cache != nil {
		opts.Locker = lock.NewRedis(d.Cache, lock.Options{Expiry: d.Cfg.LockTTL}, logger)
		opts.Cache = payments.NewRedisStatusCache(d.Cache, d.Cfg.StatusCacheTTL, logger)
	}
	paymentSvc := payments.NewService(store, accounts, engine, unit, opts)

	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	paymentHandler := payments.NewHandler(paymentSvc)

	api := app.Group("/api/v1")
	RegisterPing(api)

	// Public routes
	RegisterAuthRoutes(api, identityHandler, authHandler, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, logger))
	RegisterPublicPaymentRoutes(api, paymentHandler)

	// Protected routes
	chain := []fiber.Handler{middleware.Authenticate(authSvc, identitySvc)}
	if d.Cache != nil {
		chain = append(chain, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, logger))
	}
	protected := api.Group("", chain...)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterPaymentRoutes(protected, paymentHandler)

	return nil
}
