package transfer

import (
	"errors"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
)

var (
	// ErrSameAccount is returned when source and destination are one account.
	ErrSameAccount = errors.New("source and destination must differ")

	// ErrAmountMustBePositive is returned for a zero or negative amount.
	ErrAmountMustBePositive = errors.New("transfer amount must be positive")

	// ErrAccountsCurrenciesNotSame is returned when the two accounts are
	// denominated in different currencies.
	ErrAccountsCurrenciesNotSame = errors.New("accounts currencies are not the same")

	// ErrTransferAmountCurrencyDiffersFromAccounts is returned when the amount
	// is not in the accounts' shared currency.
	ErrTransferAmountCurrencyDiffersFromAccounts = errors.New("transfer amount currency differs from accounts currency")

	// ErrInsufficientSourceBalance is returned when the source would drop
	// below the minimum allowed balance.
	ErrInsufficientSourceBalance = errors.New("insufficient source balance")

	// ErrDestinationBalanceLimitExceeded is returned when the destination
	// would rise above the maximum allowed balance.
	ErrDestinationBalanceLimitExceeded = errors.New("destination balance limit exceeded")

	// ErrAccountBusy is returned when the account locks could not be
	// acquired in time. No balance changed; the transfer may be retried.
	ErrAccountBusy = errors.New("account is busy")
)

// Outcome is the typed result of a transfer attempt.
type Outcome string

const (
	OutcomeSuccess                                   Outcome = "Success"
	OutcomeAccountNotFound                           Outcome = "AccountNotFound"
	OutcomeAccountBusy                               Outcome = "AccountBusy"
	OutcomeInsufficientSourceBalance                 Outcome = "InsufficientSourceBalance"
	OutcomeDestinationBalanceLimitExceeded           Outcome = "DestinationBalanceLimitExceeded"
	OutcomeAccountsCurrenciesNotSame                 Outcome = "AccountsCurrenciesNotSame"
	OutcomeTransferAmountCurrencyDiffersFromAccounts Outcome = "TransferAmountCurrencyDiffersFromAccounts"
	OutcomeInvalidTransfer                           Outcome = "InvalidTransfer"
	OutcomeInternalError                             Outcome = "InternalError"
)

func (o Outcome) String() string {
	return string(o)
}

// OutcomeOf classifies the error returned by TransferMoney.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, account.ErrAccountNotFound):
		return OutcomeAccountNotFound
	case errors.Is(err, ErrAccountBusy):
		return OutcomeAccountBusy
	case errors.Is(err, ErrInsufficientSourceBalance):
		return OutcomeInsufficientSourceBalance
	case errors.Is(err, ErrDestinationBalanceLimitExceeded):
		return OutcomeDestinationBalanceLimitExceeded
	case errors.Is(err, ErrAccountsCurrenciesNotSame):
		return OutcomeAccountsCurrenciesNotSame
	case errors.Is(err, ErrTransferAmountCurrencyDiffersFromAccounts):
		return OutcomeTransferAmountCurrencyDiffersFromAccounts
	case errors.Is(err, ErrSameAccount),
		errors.Is(err, ErrAmountMustBePositive),
		errors.Is(err, money.ErrInvalidCurrency):
		return OutcomeInvalidTransfer
	default:
		return OutcomeInternalError
	}
}

// IsRetriable reports whether the failed transfer may succeed if retried
// unchanged. Only contention is retriable.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrAccountBusy)
}
