package transfer

import (
	"fmt"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/webapi/common"
)

//revive:disable

// Amount is the wire form of the money to move.
type Amount struct {
	Currency common.Text `json:"currency" validate:"required,currency"`
	Amount   common.Text `json:"amount" validate:"required,decimal,positive,money_scale"`
}

// TransferRequest represents the request body for moving money between
// two accounts.
type TransferRequest struct {
	Source      common.Text `json:"source" validate:"required,uid"`
	Destination common.Text `json:"destination" validate:"required,uid"`
	Amount      *Amount     `json:"amount" validate:"required"`
}

var transferMessages = map[string]string{
	"amount.currency:required":  "Amount currency must be provided",
	"amount.currency:currency":  "Amount currency is not supported",
	"amount.amount:required":    "Amount sum must be provided",
	"amount.amount:positive":    "Amount to transfer must be positive",
	"amount.amount:money_scale": fmt.Sprintf("Amount to transfer must have %d decimal places", money.Scale),
}

func (TransferRequest) FieldMessages() map[string]string {
	return transferMessages
}

// Check rejects unparsable uids and a transfer from an account to itself.
func (r TransferRequest) Check() *common.ValidationError {
	src, err := account.ParseUID(r.Source.String())
	if err != nil {
		ve := common.Invalid("source", "")
		return &ve
	}
	dst, err := account.ParseUID(r.Destination.String())
	if err != nil {
		ve := common.Invalid("destination", "")
		return &ve
	}
	if src == dst {
		ve := common.Invalid("destination", "Destination account must differ from source")
		return &ve
	}
	return nil
}

// TransferResponse reports a completed transfer.
type TransferResponse struct {
	Status string `json:"status"`
}
