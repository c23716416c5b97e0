// Package initializer builds the process-wide dependencies from config:
// the logger, the account repository and the rate-limit storage.
package initializer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/amirasaad/ledger/infra"
	"github.com/amirasaad/ledger/infra/cache"
	accountrepo "github.com/amirasaad/ledger/infra/repository/account"
	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
)

// InitializeDependencies initializes all the application dependencies,
// logging to stdout.
func InitializeDependencies(ctx context.Context, cfg *config.App) (*app.Deps, error) {
	return initializeDependencies(ctx, cfg, os.Stdout)
}

func initializeDependencies(ctx context.Context, cfg *config.App, w io.Writer) (deps *app.Deps, err error) {
	deps = &app.Deps{}
	logger := setupLogger(cfg.Log, w)
	deps.Logger = logger

	// Release whatever was opened if a later step fails.
	defer func() {
		if err != nil {
			for _, closeFn := range deps.Closers {
				_ = closeFn()
			}
		}
	}()

	if cfg.DB.Url == "" {
		logger.Info("DATABASE_URL not set, using in-memory account store")
		deps.AccountRepo = accountrepo.NewMemory()
	} else {
		db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
		if err != nil {
			logger.Error("Failed to initialize database", "error", err)
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		deps.Closers = append(deps.Closers, sqlDB.Close)
		if err := accountrepo.Migrate(db.WithContext(ctx)); err != nil {
			return nil, fmt.Errorf("failed to migrate accounts table: %w", err)
		}
		logger.Info("Using SQL account store", "dialect", db.Dialector.Name())
		deps.AccountRepo = accountrepo.New(db)
	}

	if cfg.Redis.URL != "" {
		storage, err := cache.NewRedisStorage(cfg.Redis, logger.With("component", "ratelimit"))
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis rate-limit storage: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := storage.Ping(pingCtx); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("failed to reach Redis: %w", err)
		}
		logger.Info("Rate limiter uses Redis storage", "prefix", cfg.Redis.KeyPrefix)
		deps.RateLimitStorage = storage
	}

	return deps, nil
}
