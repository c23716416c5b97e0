// Package webapi provides the HTTP API of the ledger.
// It is organized into sub-packages:
// - account: Account creation and balance endpoints
// - transfer: Money transfer endpoint
// - common: Problem responses, validation and idempotency shared by both
package webapi

import (
	"strings"

	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	accountweb "github.com/amirasaad/ledger/webapi/account"
	"github.com/amirasaad/ledger/webapi/common"
	transferweb "github.com/amirasaad/ledger/webapi/transfer"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	cfg := a.Config

	fiberApp := fiber.New(fiber.Config{
		AppName: "ledger",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return uuid.NewString()
		},
	}))
	fiberApp.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	if cfg.RateLimit.MaxRequests > 0 {
		fiberApp.Use(rateLimiter(cfg.RateLimit, a.Deps.RateLimitStorage))
	}

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Ledger API is running! 🚀")
	})

	accountweb.Routes(fiberApp, a.AccountService, a.Pool)
	transferweb.Routes(fiberApp, transferweb.NewHandler(
		a.TransferService,
		a.Pool,
		common.NewIdempotencyTracker(cfg.Ledger.IdempotencyTTL, a.Deps.Logger),
		cfg.Ledger.RetryAfter,
	))
	return fiberApp
}

// rateLimiter limits each client to rl.MaxRequests per rl.Window.
// Uses X-Forwarded-For header when behind a proxy
// Falls back to X-Real-IP or direct IP if needed
func rateLimiter(rl *config.RateLimit, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        rl.MaxRequests,
		Expiration: rl.Window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			if forwardedFor := c.Get(fiber.HeaderXForwardedFor); forwardedFor != "" {
				// Take the first IP in the chain
				first, _, _ := strings.Cut(forwardedFor, ",")
				return strings.TrimSpace(first)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				fiber.ErrTooManyRequests,
				"rate limit exceeded",
			)
		},
	})
}
