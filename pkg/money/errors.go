package money

import "errors"

// Common money package errors
var (
	// ErrInvalidCurrency is returned when a currency code is malformed or not supported.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrInvalidAmount is returned when an amount cannot be parsed as a decimal.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidScale is returned when an amount has more decimal places than Scale.
	ErrInvalidScale = errors.New("amount has too many decimal places")

	// ErrMismatchedCurrencies is returned when performing operations on money with
	// different currencies
	ErrMismatchedCurrencies = errors.New("mismatched currencies")
)
