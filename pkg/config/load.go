package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load applies the first of envFiles that exists (.env when none is
// given) on top of the process environment, then decodes and validates
// the configuration. Variables already set in the process win over the
// file, as godotenv never overrides them.
func Load(envFiles ...string) (*App, error) {
	logger := slog.Default().With("component", "config")
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	loaded := ""
	for _, name := range envFiles {
		path, err := FindEnvFile(name)
		if err != nil {
			logger.Debug("Environment file not found", "name", name)
			continue
		}
		if err := godotenv.Load(path); err != nil {
			logger.Warn("Skipping unreadable environment file", "path", path, "error", err)
			continue
		}
		loaded = path
		break
	}
	if loaded == "" {
		logger.Info("No environment file loaded, using process environment")
	} else {
		logger.Info("Environment file loaded", "path", loaded)
	}

	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("App config loaded",
		"env", cfg.Env,
		"address", cfg.Server.Address(),
		"min_balance", cfg.Ledger.MinBalance.String(),
		"max_balance", cfg.Ledger.MaxBalance.String(),
		"lock_timeout", cfg.Ledger.LockTimeout,
		"workers", cfg.Ledger.Workers,
		"retry_after", cfg.Ledger.RetryAfter,
		"idempotency_ttl", cfg.Ledger.IdempotencyTTL,
		"rate_limit", rateLimitLabel(cfg.RateLimit),
		"db", maskValue(cfg.DB.Url),
		"redis", maskValue(cfg.Redis.URL),
	)
	return &cfg, nil
}

func rateLimitLabel(rl *RateLimit) string {
	if rl.MaxRequests == 0 {
		return "off"
	}
	return fmt.Sprintf("%d/%s", rl.MaxRequests, rl.Window)
}

// maskValue hides all but the edges of a connection string.
func maskValue(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 6:
		return "****"
	default:
		return v[:2] + "****" + v[len(v)-4:]
	}
}
