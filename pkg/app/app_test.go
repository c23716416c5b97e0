package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	accountrepo "github.com/amirasaad/ledger/infra/repository/account"
	"github.com/amirasaad/ledger/internal/fixtures/mocks"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.App {
	return &config.App{
		Ledger: &config.Ledger{
			MinBalance:  decimal.Zero,
			MaxBalance:  decimal.RequireFromString("1000"),
			LockTimeout: 50 * time.Millisecond,
			Workers:     4,
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_WiresServices(t *testing.T) {
	ctx := context.Background()
	closed := 0
	a, err := New(ctx, &Deps{
		AccountRepo: accountrepo.NewMemory(),
		Logger:      quietLogger(),
		Closers:     []func() error{func() error { closed++; return nil }},
	}, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 4, a.Pool.Size())
	assert.True(t, a.AccountService.Bounds().Max.Equal(decimal.RequireFromString("1000")))

	src, err := a.AccountService.CreateAccount(ctx, money.MustParse("10.00", money.USD))
	require.NoError(t, err)
	dst, err := a.AccountService.CreateAccount(ctx, money.MustParse("0.00", money.USD))
	require.NoError(t, err)

	_, err = a.TransferService.TransferMoney(ctx, src.UID, dst.UID, money.MustParse("2.50", money.USD))
	require.NoError(t, err)
	got, err := a.AccountService.GetAccount(ctx, dst.UID)
	require.NoError(t, err)
	assert.Equal(t, "2.50 USD", got.Balance.String())
	assert.Equal(t, 2, a.Locks.Len())

	require.NoError(t, a.Close(ctx))
	assert.Equal(t, 1, closed)
}

func TestNew_SeedFailure(t *testing.T) {
	r := mocks.NewAccountRepository(t)
	r.On("MaxUID", mock.Anything).Return(account.UID(0), errors.New("no such table")).Once()

	_, err := New(context.Background(), &Deps{AccountRepo: r, Logger: quietLogger()}, testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account service")
}

func TestClose_JoinsErrors(t *testing.T) {
	boom := errors.New("close failed")
	a, err := New(context.Background(), &Deps{
		AccountRepo: accountrepo.NewMemory(),
		Logger:      quietLogger(),
		Closers:     []func() error{func() error { return boom }},
	}, testConfig())
	require.NoError(t, err)
	require.ErrorIs(t, a.Close(context.Background()), boom)
}
