package account

import (
	"fmt"

	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/webapi/common"
)

//revive:disable

// Balance is the wire form of an opening balance.
type Balance struct {
	Currency common.Text `json:"currency" validate:"required,currency"`
	Amount   common.Text `json:"amount" validate:"required,decimal,nonnegative,money_scale"`
}

// CreateAccountRequest represents the request body for opening an account.
type CreateAccountRequest struct {
	Balance *Balance `json:"balance" validate:"required"`
}

var createAccountMessages = map[string]string{
	"balance.currency:required":  "Balance currency must be provided",
	"balance.currency:currency":  "Balance currency is not supported",
	"balance.amount:required":    "Balance sum must be provided",
	"balance.amount:nonnegative": "Balance must be non-negative",
	"balance.amount:money_scale": fmt.Sprintf("Balance sum must have %d decimal places", money.Scale),
}

func (CreateAccountRequest) FieldMessages() map[string]string {
	return createAccountMessages
}

// CreateAccountResponse carries the uid of the new account.
type CreateAccountResponse struct {
	Account string `json:"account"`
}

// BalanceResponse carries the current balance of an account.
type BalanceResponse struct {
	Balance money.Money `json:"balance"`
}
