// Package transfer moves money between two accounts as one logical unit.
//
// A transfer validates its input, loads both accounts and pre-checks the
// balances without locking, then takes both account locks and repeats the
// checks against fresh snapshots before writing both balances together.
// Every expected failure is returned as a sentinel error; OutcomeOf maps
// it to the typed Outcome. The engine never retries: contention surfaces as
// ErrAccountBusy and the caller decides what to do.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/lock"
	"github.com/amirasaad/ledger/pkg/money"
	accountsvc "github.com/amirasaad/ledger/pkg/service/account"
)

// Store is the part of the account store the engine needs.
type Store interface {
	GetAccount(ctx context.Context, uid account.UID) (account.Account, error)
	UpdateAccounts(ctx context.Context, changes ...accountsvc.Change) ([]account.Account, error)
	Bounds() accountsvc.Bounds
}

// Receipt describes a completed transfer.
type Receipt struct {
	Source      account.Account
	Destination account.Account
	Amount      money.Money
	CompletedAt time.Time
}

// Service is the transfer engine.
type Service struct {
	store       Store
	locks       *lock.Coordinator[account.UID]
	lockTimeout time.Duration
	logger      *slog.Logger
}

// NewService creates a transfer engine. lockTimeout bounds how long a
// transfer waits for the two account locks.
func NewService(
	store Store,
	locks *lock.Coordinator[account.UID],
	lockTimeout time.Duration,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		locks:       locks,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

type lockedResult struct {
	receipt *Receipt
	err     error
}

// TransferMoney moves amount from source to destination.
// On any error neither balance has changed.
func (s *Service) TransferMoney(
	ctx context.Context,
	source, destination account.UID,
	amount money.Money,
) (*Receipt, error) {
	logger := s.logger.With(
		"source", source,
		"destination", destination,
		"amount", amount.String(),
	)

	if err := validateRequest(source, destination, amount); err != nil {
		logger.Debug("Transfer rejected", "error", err)
		return nil, err
	}

	src, dst, err := s.load(ctx, source, destination)
	if err != nil {
		logger.Debug("Transfer rejected", "error", err)
		return nil, err
	}
	if _, _, err := s.apply(src, dst, amount); err != nil {
		logger.Debug("Transfer rejected by pre-check", "error", err)
		return nil, err
	}

	res, ok := lock.ExecuteUnderLocks(ctx, s.locks, source, destination, s.lockTimeout,
		func() lockedResult {
			receipt, err := s.transferLocked(ctx, source, destination, amount)
			return lockedResult{receipt: receipt, err: err}
		})
	if !ok {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Debug("Transfer contended", "timeout", s.lockTimeout)
		return nil, fmt.Errorf("%w: %s and %s not acquired within %s",
			ErrAccountBusy, source, destination, s.lockTimeout)
	}
	if res.err != nil {
		if OutcomeOf(res.err) == OutcomeInternalError {
			logger.Error("Transfer failed", "error", res.err)
		} else {
			logger.Debug("Transfer rejected under lock", "error", res.err)
		}
		return nil, res.err
	}
	logger.Debug("Transfer completed")
	return res.receipt, nil
}

// transferLocked runs with both account locks held.
func (s *Service) transferLocked(
	ctx context.Context,
	source, destination account.UID,
	amount money.Money,
) (*Receipt, error) {
	src, dst, err := s.load(ctx, source, destination)
	if err != nil {
		return nil, err
	}
	newSrc, newDst, err := s.apply(src, dst, amount)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateAccounts(ctx,
		accountsvc.Change{Previous: src, Balance: newSrc},
		accountsvc.Change{Previous: dst, Balance: newDst},
	)
	if err != nil {
		return nil, fmt.Errorf("store transfer: %w", err)
	}
	return &Receipt{
		Source:      updated[0],
		Destination: updated[1],
		Amount:      amount,
		CompletedAt: time.Now(),
	}, nil
}

func validateRequest(source, destination account.UID, amount money.Money) error {
	if source == destination {
		return fmt.Errorf("%w: %s", ErrSameAccount, source)
	}
	if !amount.Currency().IsSupported() {
		return fmt.Errorf("%w: %q", money.ErrInvalidCurrency, amount.Currency())
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrAmountMustBePositive, amount)
	}
	return nil
}

func (s *Service) load(ctx context.Context, source, destination account.UID) (account.Account, account.Account, error) {
	src, err := s.store.GetAccount(ctx, source)
	if err != nil {
		return account.Account{}, account.Account{}, fmt.Errorf("source %s: %w", source, err)
	}
	dst, err := s.store.GetAccount(ctx, destination)
	if err != nil {
		return account.Account{}, account.Account{}, fmt.Errorf("destination %s: %w", destination, err)
	}
	return src, dst, nil
}

// apply checks currencies and bounds and returns the balances the two
// accounts would hold after the transfer.
func (s *Service) apply(src, dst account.Account, amount money.Money) (money.Money, money.Money, error) {
	if src.Currency() != dst.Currency() {
		return money.Money{}, money.Money{}, fmt.Errorf("%w: %s is %s, %s is %s",
			ErrAccountsCurrenciesNotSame, src.UID, src.Currency(), dst.UID, dst.Currency())
	}
	if amount.Currency() != src.Currency() {
		return money.Money{}, money.Money{}, fmt.Errorf("%w: amount is %s, accounts are %s",
			ErrTransferAmountCurrencyDiffersFromAccounts, amount.Currency(), src.Currency())
	}

	newSrc, err := src.Balance.Subtract(amount)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	newDst, err := dst.Balance.Add(amount)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}

	bounds := s.store.Bounds()
	if newSrc.Amount().LessThan(bounds.Min) {
		return money.Money{}, money.Money{}, fmt.Errorf("%w: %s holds %s, transfer needs %s",
			ErrInsufficientSourceBalance, src.UID, src.Balance, amount)
	}
	if newDst.Amount().GreaterThan(bounds.Max) {
		return money.Money{}, money.Money{}, fmt.Errorf("%w: %s would hold %s",
			ErrDestinationBalanceLimitExceeded, dst.UID, newDst)
	}
	return newSrc, newDst, nil
}
