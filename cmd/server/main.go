package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirasaad/ledger/infra/initializer"
	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/webapi"
	log "github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// @title Ledger API
// @version 1.0.0
// @description Accounts and money transfers between them
// @host localhost:3000
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, ".env"); err != nil {
		log.Fatal(err)
	}
}

// run serves the API until ctx is done, then drains in-flight requests
// and commands within SERVER_SHUTDOWN_TIMEOUT.
func run(ctx context.Context, envFiles ...string) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	// Initialize all dependencies
	deps, err := initializer.InitializeDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := deps.Logger

	ledger, err := app.New(ctx, deps, cfg)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	// Setup Fiber app with all routes and middleware
	fiberApp := webapi.SetupApp(ledger)

	listening := make(chan struct{})
	stopped := make(chan struct{})
	fiberApp.Hooks().OnListen(func(fiber.ListenData) error {
		close(listening)
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(stopped)
		addr := cfg.Server.Address()
		logger.Info("Starting server",
			"env", cfg.Env,
			"address", addr,
			"scheme", cfg.Server.Scheme,
			"workers", cfg.Ledger.Workers,
		)
		return fiberApp.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		select {
		case <-listening:
		case <-stopped:
		}
		logger.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(
			fiberApp.ShutdownWithContext(shutdownCtx),
			ledger.Close(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Default().Info("Server stopped")
	return nil
}
