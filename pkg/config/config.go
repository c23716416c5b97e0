package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type DB struct {
	Url string `envconfig:"URL"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:""`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"ledger:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

// RateLimit caps requests per client within Window. A MaxRequests of 0
// disables the limiter.
type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"0"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Ledger holds the balance bounds and the concurrency knobs of the
// transfer engine.
type Ledger struct {
	MinBalance     decimal.Decimal `envconfig:"MIN_BALANCE" default:"0"`
	MaxBalance     decimal.Decimal `envconfig:"MAX_BALANCE" default:"1000000000000000000"`
	LockTimeout    time.Duration   `envconfig:"LOCK_TIMEOUT" default:"100ms"`
	Workers        int             `envconfig:"WORKERS" default:"100"`
	RetryAfter     time.Duration   `envconfig:"RETRY_AFTER" default:"1s"`
	IdempotencyTTL time.Duration   `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[ledger]"`
}

type Server struct {
	Scheme          string        `envconfig:"SCHEME" default:"http"`
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"3000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Address returns the host:port pair the HTTP server listens on.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Redis     *Redis     `envconfig:"REDIS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Ledger    *Ledger    `envconfig:"LEDGER"`
}

var (
	ErrInvalidBalanceBounds = errors.New("min balance must not exceed max balance")
	ErrInvalidLockTimeout   = errors.New("lock timeout must be positive")
	ErrInvalidWorkers       = errors.New("worker count must be positive")
	ErrInvalidLogFormat     = errors.New("log format must be json or text")
	ErrInvalidRateLimit     = errors.New("rate limit needs a non-negative max and a positive window")
)

// Validate checks the cross-field rules envconfig cannot express.
func (a *App) Validate() error {
	var errs []error
	if a.Ledger.MinBalance.GreaterThan(a.Ledger.MaxBalance) {
		errs = append(errs, fmt.Errorf("%w: %s > %s",
			ErrInvalidBalanceBounds, a.Ledger.MinBalance, a.Ledger.MaxBalance))
	}
	if a.Ledger.LockTimeout <= 0 {
		errs = append(errs, ErrInvalidLockTimeout)
	}
	if a.Ledger.Workers <= 0 {
		errs = append(errs, ErrInvalidWorkers)
	}
	if a.RateLimit.MaxRequests < 0 || (a.RateLimit.MaxRequests > 0 && a.RateLimit.Window <= 0) {
		errs = append(errs, fmt.Errorf("%w: %d per %s",
			ErrInvalidRateLimit, a.RateLimit.MaxRequests, a.RateLimit.Window))
	}
	if a.Log.Format != "json" && a.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, a.Log.Format))
	}
	return errors.Join(errs...)
}
