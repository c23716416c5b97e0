// Package testutils provides helpers shared by the HTTP handler tests.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	accountrepo "github.com/amirasaad/ledger/infra/repository/account"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/lock"
	"github.com/amirasaad/ledger/pkg/money"
	accountsvc "github.com/amirasaad/ledger/pkg/service/account"
	transfersvc "github.com/amirasaad/ledger/pkg/service/transfer"
	"github.com/amirasaad/ledger/pkg/worker"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// DefaultBounds are the balance limits the server uses out of the box.
var DefaultBounds = accountsvc.Bounds{
	Min: decimal.Zero,
	Max: decimal.RequireFromString("1000000000000000000"),
}

// Ledger bundles in-memory services for handler tests.
type Ledger struct {
	Accounts  *accountsvc.Service
	Transfers *transfersvc.Service
	Locks     *lock.Coordinator[account.UID]
	Pool      *worker.Pool
}

// NewLedger builds services over an in-memory repository.
func NewLedger(t testing.TB, bounds accountsvc.Bounds) *Ledger {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts, err := accountsvc.NewService(context.Background(), accountrepo.NewMemory(), bounds, logger)
	require.NoError(t, err)
	locks := lock.New[account.UID]()
	pool := worker.NewPool(8, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Close(ctx)
	})
	return &Ledger{
		Accounts:  accounts,
		Transfers: transfersvc.NewService(accounts, locks, 50*time.Millisecond, logger),
		Locks:     locks,
		Pool:      pool,
	}
}

// Open creates an account directly through the store.
func (l *Ledger) Open(t testing.TB, amount string, code money.Code) account.UID {
	t.Helper()
	acct, err := l.Accounts.CreateAccount(context.Background(), money.MustParse(amount, code))
	require.NoError(t, err)
	return acct.UID
}

// Balance returns the stored balance of uid as "100.00 USD".
func (l *Ledger) Balance(t testing.TB, uid account.UID) string {
	t.Helper()
	acct, err := l.Accounts.GetAccount(context.Background(), uid)
	require.NoError(t, err)
	return acct.Balance.String()
}

// MakeRequest is a helper for making HTTP requests in tests. headers are
// name/value pairs.
func MakeRequest(t testing.TB, app *fiber.App, method, path, body string, headers ...string) *http.Response {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// DecodeJSON decodes the response body into T.
func DecodeJSON[T any](t testing.TB, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
