package account

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amirasaad/ledger/pkg/money"
)

var (
	// ErrAccountNotFound is returned when an account cannot be found.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidUID is returned when an account identifier is not a positive integer.
	ErrInvalidUID = errors.New("invalid account uid")

	// ErrBalanceTooHigh is returned when a balance would exceed the configured maximum.
	ErrBalanceTooHigh = errors.New("balance is too high")

	// ErrBalanceTooLow is returned when a balance would fall below the configured minimum.
	ErrBalanceTooLow = errors.New("balance is too low")

	// ErrCurrencyMismatch is returned when a new balance is not in the account currency.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// UID is the unique positive identifier of an account.
type UID int64

// ParseUID parses the decimal text form of a UID.
func ParseUID(s string) (UID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUID, s)
	}
	return UID(v), nil
}

// IsValid reports whether the uid is strictly positive.
func (u UID) IsValid() bool {
	return u > 0
}

func (u UID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

// Account is a balance-holding entity denominated in a single currency.
// It is a value type: the store hands out copies, so holding an Account
// never gives access to the live ledger state.
//
// Invariants:
//   - UID is positive and never changes.
//   - CreatedAt is set once at creation.
//   - Balance currency never changes.
type Account struct {
	UID       UID
	Balance   money.Money
	CreatedAt time.Time
}

// Currency returns the currency the account is denominated in.
func (a Account) Currency() money.Code {
	return a.Balance.Currency()
}

// WithBalance returns a copy of the account holding the new balance.
// UID and CreatedAt are preserved.
func (a Account) WithBalance(balance money.Money) (Account, error) {
	if !a.Balance.IsSameCurrency(balance) {
		return Account{}, fmt.Errorf("%w: account %s is %s, balance is %s",
			ErrCurrencyMismatch, a.UID, a.Currency(), balance.Currency())
	}
	a.Balance = balance
	return a, nil
}

func (a Account) String() string {
	return fmt.Sprintf("Account{uid=%s, balance=%s, createdAt=%s}",
		a.UID, a.Balance, a.CreatedAt.Format(time.RFC3339))
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	uid       UID
	balance   money.Money
	createdAt time.Time
}

// New creates a new Builder with a zero USD balance and the current time.
func New() *Builder {
	return &Builder{
		balance:   money.Zero(money.DefaultCode),
		createdAt: time.Now(),
	}
}

// WithUID sets the identifier for the account being built. This is a mandatory field.
func (b *Builder) WithUID(uid UID) *Builder {
	b.uid = uid
	return b
}

// WithBalance sets the balance, and therefore the currency, of the account.
func (b *Builder) WithBalance(balance money.Money) *Builder {
	b.balance = balance
	return b
}

// WithCreatedAt sets the creation timestamp. This is primarily for hydrating
// an existing account from a data store.
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

// Build validates the invariants and returns the Account.
func (b *Builder) Build() (Account, error) {
	if !b.uid.IsValid() {
		return Account{}, fmt.Errorf("%w: %d", ErrInvalidUID, b.uid)
	}
	if !b.balance.Currency().IsSupported() {
		return Account{}, fmt.Errorf("%w: %q", money.ErrInvalidCurrency, b.balance.Currency())
	}
	return Account{
		UID:       b.uid,
		Balance:   b.balance,
		CreatedAt: b.createdAt,
	}, nil
}
