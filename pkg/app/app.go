// Package app assembles the ledger services from their dependencies.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/lock"
	repo "github.com/amirasaad/ledger/pkg/repository/account"
	accountsvc "github.com/amirasaad/ledger/pkg/service/account"
	transfersvc "github.com/amirasaad/ledger/pkg/service/transfer"
	"github.com/amirasaad/ledger/pkg/worker"
	"github.com/gofiber/fiber/v2"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	AccountRepo repo.Repository
	// RateLimitStorage backs the HTTP rate limiter; nil keeps counters in memory.
	RateLimitStorage fiber.Storage
	Logger           *slog.Logger
	// Closers release infrastructure such as database pools on shutdown.
	Closers []func() error
}

type App struct {
	Deps            *Deps
	Config          *config.App
	Locks           *lock.Coordinator[account.UID]
	Pool            *worker.Pool
	AccountService  *accountsvc.Service
	TransferService *transfersvc.Service
}

// New builds the account store, the lock coordinator, the transfer engine
// and the command pool.
func New(ctx context.Context, deps *Deps, cfg *config.App) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bounds := accountsvc.Bounds{Min: cfg.Ledger.MinBalance, Max: cfg.Ledger.MaxBalance}
	accounts, err := accountsvc.NewService(ctx, deps.AccountRepo, bounds, logger.With("service", "account"))
	if err != nil {
		return nil, fmt.Errorf("account service: %w", err)
	}
	locks := lock.New[account.UID]()
	return &App{
		Deps:           deps,
		Config:         cfg,
		Locks:          locks,
		Pool:           worker.NewPool(cfg.Ledger.Workers, logger.With("component", "worker")),
		AccountService: accounts,
		TransferService: transfersvc.NewService(accounts, locks, cfg.Ledger.LockTimeout,
			logger.With("service", "transfer")),
	}, nil
}

// Close waits for in-flight commands, then releases the infrastructure.
func (a *App) Close(ctx context.Context) error {
	errs := []error{a.Pool.Close(ctx)}
	if a.Deps.RateLimitStorage != nil {
		errs = append(errs, a.Deps.RateLimitStorage.Close())
	}
	for _, closeFn := range a.Deps.Closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}
