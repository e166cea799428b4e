// internal/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	router "finflow-lending/internal/api"
	"finflow-lending/internal/api/handler"
	"finflow-lending/internal/auth"
	"finflow-lending/internal/cache"
	"finflow-lending/internal/config"
	"finflow-lending/internal/events"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/repository/sqlstore"
	"finflow-lending/internal/service"
	"finflow-lending/internal/util"
	"finflow-lending/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *logrus.Logger
	DB     *sqlx.DB

	// Optional infrastructure; nil when not configured.
	Redis     *redis.Client
	Publisher events.Publisher

	// Repositories
	UserRepository        repository.UserRepository
	WalletRepository      repository.WalletRepository
	LoanRepository        repository.LoanRepository
	RepaymentRepository   repository.RepaymentRepository
	TransactionRepository repository.TransactionRepository

	// Services
	LedgerService    service.LedgerService
	WalletService    service.WalletService
	LoanService      service.LoanService
	RepaymentService service.RepaymentService
	UserService      service.UserService

	Tokens *auth.TokenManager

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize loads configuration from the environment and initializes all
// application components.
func (app *Application) Initialize(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return app.InitializeWithConfig(ctx, cfg)
}

// InitializeWithConfig initializes all application components from cfg.
func (app *Application) InitializeWithConfig(ctx context.Context, cfg *config.AppConfig) error {
	app.Config = cfg

	// 1. Logger
	app.Logger = util.NewLogger(cfg.Log.Level, cfg.Log.Format)
	app.Logger.WithFields(cfg.LogFields()).Info("Application configuration loaded successfully.")

	// 2. Database
	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.WithField("driver", cfg.DB.Driver).Info("Database connection established.")

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(ctx, app.DB); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		app.Logger.Info("Database schema is up to date.")
	}

	// 3. Optional cache and event broker
	var walletCache cache.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			app.Logger.WithError(err).Warn("Redis unavailable, continuing without cache")
		} else {
			app.Redis = rdb
			walletCache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
			app.Logger.WithField("addr", cfg.Redis.Addr).Info("Redis cache enabled.")
		}
	}

	app.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			app.Logger.WithError(err).Warn("RabbitMQ unavailable, continuing without event publishing")
		} else {
			app.Publisher = publisher
			app.Logger.WithField("exchange", cfg.RabbitMQ.Exchange).Info("Event publishing enabled.")
		}
	}

	// 4. Repositories
	app.UserRepository = sqlstore.NewUserRepository()
	app.WalletRepository = sqlstore.NewWalletRepository()
	app.LoanRepository = sqlstore.NewLoanRepository()
	app.RepaymentRepository = sqlstore.NewRepaymentRepository()
	app.TransactionRepository = sqlstore.NewTransactionRepository()
	app.Logger.Info("Repositories initialized.")

	// 5. Services
	// The unit of work receives the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db.
	uow := service.NewUnitOfWork(app.DB, db.BeginTx, db.CommitTx, db.RollbackTx)
	notifier := service.NewNotifier(walletCache, app.Publisher, app.Logger)

	app.LedgerService = service.NewLedgerService(app.DB, uow, app.WalletRepository, app.TransactionRepository, walletCache, app.Logger)
	app.WalletService = service.NewWalletService(app.DB, uow, app.WalletRepository, app.LedgerService, walletCache, notifier, app.Logger)
	app.LoanService = service.NewLoanService(
		app.DB,
		uow,
		app.LoanRepository,
		app.WalletRepository,
		app.WalletService,
		app.LedgerService,
		notifier,
		app.Logger,
	)
	app.RepaymentService = service.NewRepaymentService(
		app.DB,
		uow,
		app.LoanRepository,
		app.RepaymentRepository,
		app.WalletService,
		app.LedgerService,
		notifier,
		app.Logger,
		service.RepaymentOptions{StrictIdempotency: cfg.Lending.StrictIdempotency},
	)
	app.UserService = service.NewUserService(
		app.DB,
		uow,
		app.UserRepository,
		app.WalletService,
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		cfg.Auth.AllowAdminSignup,
		app.Logger,
	)
	app.Tokens = auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	app.Logger.Info("Services initialized.")

	// 6. HTTP handlers and router
	app.HTTPHandler = router.NewRouter(router.Handlers{
		Auth:       handler.NewAuthHandler(app.UserService, app.Tokens, app.Logger),
		Loans:      handler.NewLoanHandler(app.LoanService, app.Logger),
		Repayments: handler.NewRepaymentHandler(app.RepaymentService, app.Logger),
		Wallet:     handler.NewWalletHandler(app.WalletService, app.LedgerService, app.Logger),
		Ready:      app.DB.PingContext,
	}, app.Tokens, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	logger := app.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.Info("Shutting down application...")

	var errs []error
	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			logger.WithError(err).Error("Failed to close event publisher")
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			logger.WithError(err).Error("Failed to close Redis client")
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			logger.WithError(err).Error("Failed to close database connection")
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		} else {
			logger.Info("Database connection closed.")
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Info("Application shut down gracefully.")
	return nil
}
