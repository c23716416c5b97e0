// Package account implements the account store: creation with fresh
// identifiers, snapshot lookups, balance replacement and the configured
// balance bounds.
//
// The store performs no locking of its own. Callers that read-modify-write
// a balance must hold the account lock (see package lock) for the whole
// sequence.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	repo "github.com/amirasaad/ledger/pkg/repository/account"
	"github.com/shopspring/decimal"
)

// FirstUIDBase is the value uids are allocated after; the first account
// created in an empty store gets FirstUIDBase+1.
const FirstUIDBase account.UID = 1_000_000_000

// Bounds are the inclusive limits every balance must stay within.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Allows reports whether min <= amount <= max.
func (b Bounds) Allows(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(b.Min) && amount.LessThanOrEqual(b.Max)
}

// Service is the account store.
type Service struct {
	repo    repo.Repository
	bounds  Bounds
	lastUID atomic.Int64
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates the store and seeds uid allocation from the highest
// uid already persisted, so identifiers are never reused across restarts.
func NewService(
	ctx context.Context,
	r repo.Repository,
	bounds Bounds,
	logger *slog.Logger,
) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	maxUID, err := r.MaxUID(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed account uid: %w", err)
	}
	s := &Service{
		repo:   r,
		bounds: bounds,
		now:    time.Now,
		logger: logger,
	}
	s.lastUID.Store(int64(max(FirstUIDBase, maxUID)))
	return s, nil
}

// Bounds returns the configured balance limits.
func (s *Service) Bounds() Bounds {
	return s.bounds
}

// IsBalanceAllowable reports whether balance lies within the configured
// bounds, inclusive at both ends.
func (s *Service) IsBalanceAllowable(balance money.Money) bool {
	return s.bounds.Allows(balance.Amount())
}

// CreateAccount opens an account holding initial. The new uid is strictly
// greater than every uid handed out before it.
func (s *Service) CreateAccount(ctx context.Context, initial money.Money) (account.Account, error) {
	logger := s.logger.With("balance", initial.String())

	if !initial.Currency().IsSupported() {
		return account.Account{}, fmt.Errorf("%w: %q", money.ErrInvalidCurrency, initial.Currency())
	}
	if initial.Amount().GreaterThan(s.bounds.Max) {
		logger.Info("CreateAccount rejected", "reason", "balance above maximum")
		return account.Account{}, fmt.Errorf("%w: %s exceeds %s",
			account.ErrBalanceTooHigh, initial, s.bounds.Max.StringFixed(money.Scale))
	}
	if initial.Amount().LessThan(s.bounds.Min) {
		logger.Info("CreateAccount rejected", "reason", "balance below minimum")
		return account.Account{}, fmt.Errorf("%w: %s is below %s",
			account.ErrBalanceTooLow, initial, s.bounds.Min.StringFixed(money.Scale))
	}

	uid := account.UID(s.lastUID.Add(1))
	acct, err := account.New().
		WithUID(uid).
		WithBalance(initial).
		WithCreatedAt(s.now()).
		Build()
	if err != nil {
		return account.Account{}, err
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		logger.Error("CreateAccount failed: repo create error", "uid", uid, "error", err)
		return account.Account{}, fmt.Errorf("create account %s: %w", uid, err)
	}
	logger.Info("Account created", "uid", uid)
	return acct, nil
}

// GetAccount returns a snapshot of the account.
// It fails with account.ErrAccountNotFound for an unknown uid.
func (s *Service) GetAccount(ctx context.Context, uid account.UID) (account.Account, error) {
	acct, err := s.repo.Get(ctx, uid)
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

// FindAccount is the non-failing form of GetAccount. Storage errors other
// than not-found are logged and reported as absent.
func (s *Service) FindAccount(ctx context.Context, uid account.UID) (account.Account, bool) {
	acct, err := s.repo.Get(ctx, uid)
	if err != nil {
		if !errors.Is(err, account.ErrAccountNotFound) {
			s.logger.Error("FindAccount failed", "uid", uid, "error", err)
		}
		return account.Account{}, false
	}
	return acct, true
}

// UpdateAccount replaces the balance of previous with newBalance and
// returns the stored snapshot. The uid and creation time are preserved.
// Bounds are not checked here; callers validate before updating.
func (s *Service) UpdateAccount(
	ctx context.Context,
	previous account.Account,
	newBalance money.Money,
) (account.Account, error) {
	updated, err := previous.WithBalance(newBalance)
	if err != nil {
		return account.Account{}, err
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return account.Account{}, fmt.Errorf("update account %s: %w", previous.UID, err)
	}
	s.logger.Debug("Account updated", "uid", updated.UID, "balance", newBalance.String())
	return updated, nil
}

// Change is one balance replacement within UpdateAccounts.
type Change struct {
	Previous account.Account
	Balance  money.Money
}

// UpdateAccounts applies every change as one unit: either all balances are
// stored or none is. Results are returned in the order of changes.
func (s *Service) UpdateAccounts(ctx context.Context, changes ...Change) ([]account.Account, error) {
	updated := make([]account.Account, 0, len(changes))
	for _, c := range changes {
		next, err := c.Previous.WithBalance(c.Balance)
		if err != nil {
			return nil, err
		}
		updated = append(updated, next)
	}
	if err := s.repo.Update(ctx, updated...); err != nil {
		return nil, fmt.Errorf("update %d accounts: %w", len(updated), err)
	}
	return updated, nil
}
