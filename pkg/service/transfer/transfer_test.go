package transfer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	accountrepo "github.com/amirasaad/ledger/infra/repository/account"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/lock"
	"github.com/amirasaad/ledger/pkg/money"
	accountsvc "github.com/amirasaad/ledger/pkg/service/account"
	"github.com/amirasaad/ledger/pkg/service/transfer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type TransferTestSuite struct {
	suite.Suite
	ctx    context.Context
	repo   *accountrepo.MemoryRepository
	store  *accountsvc.Service
	locks  *lock.Coordinator[account.UID]
	engine *transfer.Service
}

func (s *TransferTestSuite) SetupTest() {
	s.setup(accountsvc.Bounds{
		Min: decimal.Zero,
		Max: decimal.RequireFromString("1000000000000000000"),
	}, 100*time.Millisecond)
}

func (s *TransferTestSuite) setup(bounds accountsvc.Bounds, timeout time.Duration) {
	s.ctx = context.Background()
	s.repo = accountrepo.NewMemory()
	store, err := accountsvc.NewService(s.ctx, s.repo, bounds, slog.Default())
	s.Require().NoError(err)
	s.store = store
	s.locks = lock.New[account.UID]()
	s.engine = transfer.NewService(s.store, s.locks, timeout, slog.Default())
}

func (s *TransferTestSuite) open(amount string, code money.Code) account.UID {
	acc, err := s.store.CreateAccount(s.ctx, money.MustParse(amount, code))
	s.Require().NoError(err)
	return acc.UID
}

func (s *TransferTestSuite) balance(uid account.UID) string {
	acc, err := s.store.GetAccount(s.ctx, uid)
	s.Require().NoError(err)
	return acc.Balance.String()
}

// holdLocks keeps the given account locks until release is called.
func (s *TransferTestSuite) holdLocks(uids ...account.UID) (release func()) {
	held := make(chan struct{})
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = s.locks.Do(context.Background(), time.Second, func() error {
			close(held)
			<-done
			return nil
		}, uids...)
	}()
	<-held
	return func() {
		close(done)
		<-finished
	}
}

func (s *TransferTestSuite) TestScenario_SimpleTransfer() {
	a := s.open("100.00", money.USD)
	b := s.open("0.00", money.USD)

	receipt, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse("10.00", money.USD))
	s.Require().NoError(err)
	s.Equal(transfer.OutcomeSuccess, transfer.OutcomeOf(err))
	s.Equal("90.00 USD", receipt.Source.Balance.String())
	s.Equal("10.00 USD", receipt.Destination.Balance.String())
	s.Equal("90.00 USD", s.balance(a))
	s.Equal("10.00 USD", s.balance(b))
}

func (s *TransferTestSuite) TestScenario_InsufficientSourceBalance() {
	a := s.open("50.00", money.USD)
	b := s.open("0.00", money.USD)

	_, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse("100.00", money.USD))
	s.Require().ErrorIs(err, transfer.ErrInsufficientSourceBalance)
	s.Equal(transfer.OutcomeInsufficientSourceBalance, transfer.OutcomeOf(err))
	s.False(transfer.IsRetriable(err))
	s.Equal("50.00 USD", s.balance(a))
	s.Equal("0.00 USD", s.balance(b))
}

func (s *TransferTestSuite) TestScenario_AccountsCurrenciesNotSame() {
	a := s.open("100.00", money.USD)
	b := s.open("100.00", money.EUR)

	_, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse("10.00", money.USD))
	s.Require().ErrorIs(err, transfer.ErrAccountsCurrenciesNotSame)
	s.Equal(transfer.OutcomeAccountsCurrenciesNotSame, transfer.OutcomeOf(err))
	s.Equal("100.00 USD", s.balance(a))
	s.Equal("100.00 EUR", s.balance(b))
}

func (s *TransferTestSuite) TestScenario_OppositeTransfersConserveMoney() {
	a := s.open("1000.00", money.USD)
	b := s.open("1000.00", money.USD)

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src, dst := a, b
			if i%2 == 1 {
				src, dst = b, a
			}
			_, err := s.engine.TransferMoney(s.ctx, src, dst, money.MustParse("1.00", money.USD))
			outcome := transfer.OutcomeOf(err)
			s.Contains([]transfer.Outcome{transfer.OutcomeSuccess, transfer.OutcomeAccountBusy}, outcome)
		}(i)
	}
	wg.Wait()

	total := s.mustAmount(a).Add(s.mustAmount(b))
	s.True(total.Equal(decimal.RequireFromString("2000.00")), "total is %s", total)
}

func (s *TransferTestSuite) TestScenario_SameAccountRejectedBeforeLocking() {
	a := s.open("100.00", money.USD)
	release := s.holdLocks(a)
	defer release()

	_, err := s.engine.TransferMoney(s.ctx, a, a, money.MustParse("1.00", money.USD))
	s.Require().ErrorIs(err, transfer.ErrSameAccount)
	s.Equal(transfer.OutcomeInvalidTransfer, transfer.OutcomeOf(err))
}

func (s *TransferTestSuite) TestNonPositiveAmountRejected() {
	a := s.open("100.00", money.USD)
	b := s.open("0.00", money.USD)

	for _, amount := range []string{"0.00", "-5.00"} {
		_, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse(amount, money.USD))
		s.Require().ErrorIs(err, transfer.ErrAmountMustBePositive)
		s.Equal(transfer.OutcomeInvalidTransfer, transfer.OutcomeOf(err))
	}
	s.Equal("100.00 USD", s.balance(a))
}

func (s *TransferTestSuite) TestAccountNotFound() {
	a := s.open("100.00", money.USD)

	_, err := s.engine.TransferMoney(s.ctx, a, 42, money.MustParse("1.00", money.USD))
	s.Require().ErrorIs(err, account.ErrAccountNotFound)
	s.Equal(transfer.OutcomeAccountNotFound, transfer.OutcomeOf(err))

	_, err = s.engine.TransferMoney(s.ctx, 42, a, money.MustParse("1.00", money.USD))
	s.Require().ErrorIs(err, account.ErrAccountNotFound)
	s.Equal("100.00 USD", s.balance(a))
}

func (s *TransferTestSuite) TestAmountCurrencyDiffersFromAccounts() {
	a := s.open("100.00", money.GBP)
	b := s.open("0.00", money.GBP)

	_, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse("1.00", money.RUB))
	s.Require().ErrorIs(err, transfer.ErrTransferAmountCurrencyDiffersFromAccounts)
	s.Equal(transfer.OutcomeTransferAmountCurrencyDiffersFromAccounts, transfer.OutcomeOf(err))
}

func (s *TransferTestSuite) TestDestinationBalanceLimitExceeded() {
	s.setup(accountsvc.Bounds{Min: decimal.Zero, Max: decimal.RequireFromString("100")}, 100*time.Millisecond)
	a := s.open("50.00", money.USD)
	b := s.open("90.00", money.USD)

	_, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse("10.01", money.USD))
	s.Require().ErrorIs(err, transfer.ErrDestinationBalanceLimitExceeded)
	s.Equal(transfer.OutcomeDestinationBalanceLimitExceeded, transfer.OutcomeOf(err))

	_, err = s.engine.TransferMoney(s.ctx, a, b, money.MustParse("10.00", money.USD))
	s.Require().NoError(err, "landing exactly on max is allowed")
	s.Equal("100.00 USD", s.balance(b))
}

func (s *TransferTestSuite) TestOverdraftDownToNegativeMin() {
	s.setup(accountsvc.Bounds{
		Min: decimal.RequireFromString("-50"),
		Max: decimal.RequireFromString("1000"),
	}, 100*time.Millisecond)
	a := s.open("20.00", money.USD)
	b := s.open("0.00", money.USD)

	_, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse("70.01", money.USD))
	s.Require().ErrorIs(err, transfer.ErrInsufficientSourceBalance)
	s.Equal("20.00 USD", s.balance(a))

	_, err = s.engine.TransferMoney(s.ctx, a, b, money.MustParse("70.00", money.USD))
	s.Require().NoError(err, "landing exactly on a negative min is allowed")
	s.Equal("-50.00 USD", s.balance(a))
	s.Equal("70.00 USD", s.balance(b))

	_, err = s.engine.TransferMoney(s.ctx, a, b, money.MustParse("0.01", money.USD))
	s.Require().ErrorIs(err, transfer.ErrInsufficientSourceBalance)
	s.Equal("-50.00 USD", s.balance(a))
}

func (s *TransferTestSuite) TestPositiveMinKeepsReserve() {
	s.setup(accountsvc.Bounds{
		Min: decimal.RequireFromString("10"),
		Max: decimal.RequireFromString("1000"),
	}, 100*time.Millisecond)
	a := s.open("100.00", money.USD)
	b := s.open("10.00", money.USD)

	_, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse("90.01", money.USD))
	s.Require().ErrorIs(err, transfer.ErrInsufficientSourceBalance)
	s.Equal(transfer.OutcomeInsufficientSourceBalance, transfer.OutcomeOf(err))
	s.Equal("100.00 USD", s.balance(a))
	s.Equal("10.00 USD", s.balance(b))

	_, err = s.engine.TransferMoney(s.ctx, a, b, money.MustParse("90.00", money.USD))
	s.Require().NoError(err)
	s.Equal("10.00 USD", s.balance(a))
	s.Equal("100.00 USD", s.balance(b))
}

func (s *TransferTestSuite) TestDrainSourceToZero() {
	a := s.open("25.50", money.EUR)
	b := s.open("0.00", money.EUR)

	_, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse("25.50", money.EUR))
	s.Require().NoError(err)
	s.Equal("0.00 EUR", s.balance(a))
	s.Equal("25.50 EUR", s.balance(b))
}

func (s *TransferTestSuite) TestBusyWhenLocksHeld() {
	a := s.open("100.00", money.USD)
	b := s.open("0.00", money.USD)
	release := s.holdLocks(b)
	defer release()

	_, err := s.engine.TransferMoney(s.ctx, a, b, money.MustParse("10.00", money.USD))
	s.Require().ErrorIs(err, transfer.ErrAccountBusy)
	s.Equal(transfer.OutcomeAccountBusy, transfer.OutcomeOf(err))
	s.True(transfer.IsRetriable(err))
	s.Equal("100.00 USD", s.balance(a))
	s.Equal("0.00 USD", s.balance(b))
}

func (s *TransferTestSuite) TestCanceledWhileWaiting() {
	a := s.open("100.00", money.USD)
	b := s.open("0.00", money.USD)
	release := s.holdLocks(a, b)
	defer release()

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.engine.TransferMoney(ctx, a, b, money.MustParse("10.00", money.USD))
	s.Require().ErrorIs(err, context.Canceled)
	s.Equal("100.00 USD", s.balance(a))
}

func (s *TransferTestSuite) TestRevalidatesUnderLock() {
	s.setup(accountsvc.Bounds{
		Min: decimal.Zero,
		Max: decimal.RequireFromString("1000000"),
	}, 2*time.Second)
	a := s.open("100.00", money.USD)
	b := s.open("0.00", money.USD)

	prechecked := make(chan struct{})
	store := &signalingStore{Store: s.store, after: 2, signal: prechecked}
	engine := transfer.NewService(store, s.locks, 2*time.Second, slog.Default())

	release := s.holdLocks(a, b)
	errCh := make(chan error, 1)
	go func() {
		_, err := engine.TransferMoney(s.ctx, a, b, money.MustParse("80.00", money.USD))
		errCh <- err
	}()

	<-prechecked
	// the pre-check saw 100.00; drain the source before the engine gets the locks.
	src, err := s.store.GetAccount(s.ctx, a)
	s.Require().NoError(err)
	_, err = s.store.UpdateAccount(s.ctx, src, money.MustParse("50.00", money.USD))
	s.Require().NoError(err)
	release()

	err = <-errCh
	s.Require().ErrorIs(err, transfer.ErrInsufficientSourceBalance)
	s.Equal("50.00 USD", s.balance(a))
	s.Equal("0.00 USD", s.balance(b))
}

func (s *TransferTestSuite) TestStorageFailureLeavesNoPartialState() {
	a := s.open("100.00", money.USD)
	b := s.open("0.00", money.USD)

	boom := errors.New("write failed")
	engine := transfer.NewService(&failingStore{Store: s.store, err: boom}, s.locks, time.Second, slog.Default())

	_, err := engine.TransferMoney(s.ctx, a, b, money.MustParse("10.00", money.USD))
	s.Require().ErrorIs(err, boom)
	s.Equal(transfer.OutcomeInternalError, transfer.OutcomeOf(err))
	s.Equal("100.00 USD", s.balance(a))
	s.Equal("0.00 USD", s.balance(b))
}

func (s *TransferTestSuite) TestConcurrentTransfersKeepInvariants() {
	maxBalance := decimal.RequireFromString("5000")
	s.setup(accountsvc.Bounds{Min: decimal.Zero, Max: maxBalance}, 50*time.Millisecond)

	const accounts = 6
	uids := make([]account.UID, accounts)
	for i := range uids {
		uids[i] = s.open("1000.00", money.USD)
	}

	var (
		wg       sync.WaitGroup
		outcomes sync.Map
		total    atomic.Int64
	)
	for w := range 32 {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(seed, 7))
			for range 100 {
				src := uids[r.IntN(accounts)]
				dst := uids[r.IntN(accounts)]
				if src == dst {
					continue
				}
				amount, err := money.FromCents(int64(1+r.IntN(50000)), money.USD)
				if !s.NoError(err) {
					return
				}
				_, err = s.engine.TransferMoney(s.ctx, src, dst, amount)
				outcome := transfer.OutcomeOf(err)
				s.NotEqual(transfer.OutcomeInternalError, outcome, "unexpected error: %v", err)
				counter, _ := outcomes.LoadOrStore(outcome, new(atomic.Int64))
				counter.(*atomic.Int64).Add(1)
				total.Add(1)
			}
		}(uint64(w))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.FailNow("transfers did not complete; possible deadlock")
	}

	sum := decimal.Zero
	for _, uid := range uids {
		amount := s.mustAmount(uid)
		s.True(amount.GreaterThanOrEqual(decimal.Zero), "%s below min: %s", uid, amount)
		s.True(amount.LessThanOrEqual(maxBalance), "%s above max: %s", uid, amount)
		sum = sum.Add(amount)
	}
	s.True(sum.Equal(decimal.RequireFromString("6000.00")), "sum is %s", sum)
	s.Positive(total.Load())
}

func (s *TransferTestSuite) mustAmount(uid account.UID) decimal.Decimal {
	acc, err := s.store.GetAccount(s.ctx, uid)
	s.Require().NoError(err)
	return acc.Balance.Amount()
}

func TestTransferTestSuite(t *testing.T) {
	suite.Run(t, new(TransferTestSuite))
}

// signalingStore closes signal once GetAccount has been called after times.
type signalingStore struct {
	transfer.Store
	after  int32
	calls  atomic.Int32
	signal chan struct{}
}

func (s *signalingStore) GetAccount(ctx context.Context, uid account.UID) (account.Account, error) {
	acc, err := s.Store.GetAccount(ctx, uid)
	if s.calls.Add(1) == s.after {
		close(s.signal)
	}
	return acc, err
}

type failingStore struct {
	transfer.Store
	err error
}

func (f *failingStore) UpdateAccounts(context.Context, ...accountsvc.Change) ([]account.Account, error) {
	return nil, f.err
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want transfer.Outcome
	}{
		{nil, transfer.OutcomeSuccess},
		{account.ErrAccountNotFound, transfer.OutcomeAccountNotFound},
		{transfer.ErrAccountBusy, transfer.OutcomeAccountBusy},
		{transfer.ErrInsufficientSourceBalance, transfer.OutcomeInsufficientSourceBalance},
		{transfer.ErrDestinationBalanceLimitExceeded, transfer.OutcomeDestinationBalanceLimitExceeded},
		{transfer.ErrAccountsCurrenciesNotSame, transfer.OutcomeAccountsCurrenciesNotSame},
		{transfer.ErrTransferAmountCurrencyDiffersFromAccounts, transfer.OutcomeTransferAmountCurrencyDiffersFromAccounts},
		{transfer.ErrSameAccount, transfer.OutcomeInvalidTransfer},
		{transfer.ErrAmountMustBePositive, transfer.OutcomeInvalidTransfer},
		{money.ErrInvalidCurrency, transfer.OutcomeInvalidTransfer},
		{errors.New("disk on fire"), transfer.OutcomeInternalError},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, transfer.OutcomeOf(tt.err))
		})
	}
	require.True(t, transfer.IsRetriable(transfer.ErrAccountBusy))
	require.False(t, transfer.IsRetriable(nil))
}

func TestTransferMoney_InvalidCurrencyAmount(t *testing.T) {
	repo := accountrepo.NewMemory()
	store, err := accountsvc.NewService(context.Background(), repo, accountsvc.Bounds{Max: decimal.NewFromInt(100)}, nil)
	require.NoError(t, err)
	engine := transfer.NewService(store, lock.New[account.UID](), time.Second, nil)

	_, err = engine.TransferMoney(context.Background(), 1, 2, money.Money{})
	require.ErrorIs(t, err, money.ErrInvalidCurrency)
}
