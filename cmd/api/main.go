package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/customer-ledger/internal/api/http"
	"github.com/spec-kit/customer-ledger/internal/api/http/handlers"
	"github.com/spec-kit/customer-ledger/internal/auth"
	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/events"
	"github.com/spec-kit/customer-ledger/internal/matching"
	"github.com/spec-kit/customer-ledger/internal/observability"
	"github.com/spec-kit/customer-ledger/internal/persistence"
	"github.com/spec-kit/customer-ledger/internal/policy"
	"github.com/spec-kit/customer-ledger/internal/repository"
	"github.com/spec-kit/customer-ledger/internal/repository/memory"
	sqlitestore "github.com/spec-kit/customer-ledger/internal/repository/sqlite"
	"github.com/spec-kit/customer-ledger/internal/service"
	"github.com/spec-kit/customer-ledger/internal/worker"
)

// stores groups the repositories selected by STORAGE_DRIVER.
type stores struct {
	admins       repository.AdminRepository
	customers    repository.CustomerRepository
	tombstones   repository.TombstoneRepository
	dependencies map[string]handlers.Pinger
	closers      []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	sentryEnabled, err := observability.InitSentry(*cfg, logger)
	if err != nil {
		logger.Error("sentry init failed", zap.Error(err))
	}
	if sentryEnabled {
		defer observability.FlushSentry(2 * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer st.close()

	normalizer, err := matching.New(cfg.Policy.MatchStrategy)
	if err != nil {
		logger.Fatal("invalid match strategy", zap.Error(err))
	}
	if cfg.Auth.Bootstrap.Enabled() {
		logger.Warn("bootstrap superadmin identity enabled; rotate or disable it in production",
			zap.String("admin_id", cfg.Auth.Bootstrap.AdminID))
	}

	metrics := observability.NewMetrics("customer_ledger")
	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notificationService, metrics)

	access := policy.NewAccess(cfg.Policy.OwnerOnlyMutation)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	identityService := service.NewIdentityService(*cfg, service.IdentityDependencies{
		Admins:     st.admins,
		Tokens:     tokens,
		Bootstrap:  auth.NewBootstrapIdentity(cfg.Auth.Bootstrap),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	customerService := service.NewCustomerService(*cfg, service.CustomerDependencies{
		Customers:  st.customers,
		Tombstones: st.tombstones,
		Directory:  identityService,
		Normalizer: normalizer,
		Access:     access,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	reportService := service.NewReportService(*cfg, st.admins, st.customers, access)

	app := httptransport.NewApp(cfg.App.Name,
		httptransport.MiddlewareConfig{
			Logger:         logger,
			Metrics:        metrics,
			RequestTimeout: cfg.App.RequestTimeout(),
			Sentry:         sentryEnabled,
		},
		httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Storage.Driver, st.dependencies),
			Admins:         handlers.NewAdminsHandler(identityService, reportService),
			Customers:      handlers.NewCustomersHandler(customerService),
			AuthMiddleware: auth.NewAuthMiddleware(tokens, identityService),
			Metrics:        metrics,
		})

	logger.Info("starting server",
		zap.String("addr", cfg.App.Addr()),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("match_strategy", normalizer.Name()),
		zap.Bool("owner_only_mutation", access.OwnerOnlyMutation()))

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{dependencies: map[string]handlers.Pinger{}}

	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				st.close()
				return nil, err
			}
		}
		st.admins = repository.NewAdminRepository(pg.Pool)
		st.customers = repository.NewCustomerRepository(pg.Pool)
		st.dependencies["postgres"] = pg
	case config.StorageDriverSQLite:
		db, err := persistence.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		st.admins = sqlitestore.NewAdminStore(db.DB)
		st.customers = sqlitestore.NewCustomerStore(db.DB)
		st.dependencies["sqlite"] = db
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		st.admins = memory.NewAdminStore()
		st.customers = memory.NewCustomerStore()
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Redis.Enabled {
		rdb := persistence.NewRedis(ctx, cfg.Redis, cfg.Storage, logger)
		st.closers = append(st.closers, rdb.Close)
		st.tombstones = repository.NewRedisTombstoneRepository(rdb.Client)
		st.dependencies["redis"] = rdb
	} else {
		st.tombstones = memory.NewTombstoneStore()
	}
	return st, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
