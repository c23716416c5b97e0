package common

import (
	"errors"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/service/transfer"
	"github.com/amirasaad/ledger/pkg/worker"
	"github.com/gofiber/fiber/v2"
)

// Application error codes returned in errors.application.code.
const (
	CodeBalanceTooHigh  = "BalanceTooHigh"
	CodeBalanceTooLow   = "BalanceTooLow"
	CodeRetryAfter      = "RetryAfter"
	CodeTechnicalError  = "TechnicalError"
	CodeInvalidRequest  = "InvalidRequest"
	CodeTooManyRequests = "TooManyRequests"

	CodeIdempotencyKeyReused = "IdempotencyKeyReused"
)

var applicationMessages = map[string]string{
	CodeBalanceTooHigh: "Balance is too high",
	CodeBalanceTooLow:  "Balance is too low",

	transfer.OutcomeAccountNotFound.String():                           "Account was not found",
	transfer.OutcomeAccountsCurrenciesNotSame.String():                 "Currencies of given accounts differs from each other",
	transfer.OutcomeTransferAmountCurrencyDiffersFromAccounts.String(): "Currency of amount to transfer differs from requested accounts",
	transfer.OutcomeInsufficientSourceBalance.String():                 "Insufficient balance on source account",
	transfer.OutcomeDestinationBalanceLimitExceeded.String():           "Destination balance limit will be exceeded",

	CodeRetryAfter:      "Service is unavailable",
	CodeInvalidRequest:  "Request is invalid",
	CodeTooManyRequests: "Too many requests",
	CodeTechnicalError:  "Technical error",

	CodeIdempotencyKeyReused: "Idempotency key was already used for a different request",
}

// ErrorToStatusCode maps ledger errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	var fiberErr *fiber.Error
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, transfer.ErrAccountBusy):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, account.ErrBalanceTooHigh),
		errors.Is(err, account.ErrBalanceTooLow),
		errors.Is(err, account.ErrAccountNotFound),
		errors.Is(err, transfer.ErrAccountsCurrenciesNotSame),
		errors.Is(err, transfer.ErrTransferAmountCurrencyDiffersFromAccounts),
		errors.Is(err, transfer.ErrInsufficientSourceBalance),
		errors.Is(err, transfer.ErrDestinationBalanceLimitExceeded),
		errors.Is(err, ErrIdempotencyKeyReused):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, transfer.ErrSameAccount),
		errors.Is(err, transfer.ErrAmountMustBePositive),
		errors.Is(err, account.ErrInvalidUID),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrInvalidScale):
		return fiber.StatusBadRequest
	case errors.Is(err, worker.ErrPoolClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ApplicationErrorOf returns the code and message reported for err.
// Errors without a dedicated code are reported as TechnicalError.
func ApplicationErrorOf(err error) ApplicationError {
	code := CodeTechnicalError
	switch {
	case errors.Is(err, account.ErrBalanceTooHigh):
		code = CodeBalanceTooHigh
	case errors.Is(err, account.ErrBalanceTooLow):
		code = CodeBalanceTooLow
	case errors.Is(err, transfer.ErrAccountBusy), errors.Is(err, worker.ErrPoolClosed):
		code = CodeRetryAfter
	case errors.Is(err, ErrIdempotencyKeyReused):
		code = CodeIdempotencyKeyReused
	default:
		switch outcome := transfer.OutcomeOf(err); outcome {
		case transfer.OutcomeAccountNotFound,
			transfer.OutcomeAccountsCurrenciesNotSame,
			transfer.OutcomeTransferAmountCurrencyDiffersFromAccounts,
			transfer.OutcomeInsufficientSourceBalance,
			transfer.OutcomeDestinationBalanceLimitExceeded:
			code = outcome.String()
		case transfer.OutcomeInvalidTransfer:
			code = CodeInvalidRequest
		default:
			switch status := ErrorToStatusCode(err); {
			case status == fiber.StatusTooManyRequests:
				code = CodeTooManyRequests
			case status >= 400 && status < 500:
				code = CodeInvalidRequest
			}
		}
	}
	return ApplicationError{Code: code, Message: applicationMessages[code]}
}
