// Package money provides functionality for handling monetary values.
//
// It is a value object that represents a monetary value in a specific currency.
// Invariants:
//   - Amount is an exact decimal stored with a scale of exactly 2.
//   - Currency code must be one of the supported codes.
//   - All arithmetic operations require matching currencies.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every amount carries.
const Scale int32 = 2

// Money represents a monetary value in a specific currency.
// The zero value is not a valid Money; use New, Parse or Zero.
type Money struct {
	amount   decimal.Decimal
	currency Code
}

// New creates a new Money value object with the given amount and currency.
// Invariants enforced:
//   - Currency must be supported.
//   - Amount must not have more decimal places than Scale.
//
// The stored amount is normalized to exactly Scale decimal places.
func New(amount decimal.Decimal, currency Code) (Money, error) {
	if !currency.IsSupported() {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	if !amount.Equal(amount.Truncate(Scale)) {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidScale, amount.String())
	}
	return Money{amount: amount.Round(Scale), currency: currency}, nil
}

// Parse creates Money from a decimal string such as "100.00".
func Parse(amount string, currency Code) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return New(d, currency)
}

// MustParse is like Parse but panics if the amount or currency is invalid.
// Intended for tests and package-level fixtures.
func MustParse(amount string, currency Code) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(fmt.Sprintf("money.MustParse(%q, %q): %v", amount, currency, err))
	}
	return m
}

// FromCents creates Money from an amount in the smallest currency unit.
func FromCents(cents int64, currency Code) (Money, error) {
	return New(decimal.New(cents, -Scale), currency)
}

// Zero creates a Money object with zero amount in the specified currency.
func Zero(currency Code) Money {
	return Money{amount: decimal.Zero.Round(Scale), currency: currency}
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code of the Money object.
func (m Money) Currency() Code {
	return m.currency
}

// IsSameCurrency checks if both values share a currency.
func (m Money) IsSameCurrency(other Money) bool {
	return m.currency == other.currency
}

// Add returns a new Money object with the sum of amounts.
// Invariants enforced:
//   - Currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, fmt.Errorf("%w: cannot add %s and %s", ErrMismatchedCurrencies, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns a new Money object with the difference of amounts.
// The result can be negative if the subtrahend is larger than the minuend.
// Invariants enforced:
//   - Currencies must match.
func (m Money) Subtract(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, fmt.Errorf("%w: cannot subtract %s from %s", ErrMismatchedCurrencies, other.currency, m.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Cmp compares two values of the same currency: -1, 0 or +1.
func (m Money) Cmp(other Money) (int, error) {
	if !m.IsSameCurrency(other) {
		return 0, fmt.Errorf("%w: cannot compare %s and %s", ErrMismatchedCurrencies, m.currency, other.currency)
	}
	return m.amount.Cmp(other.amount), nil
}

// Equals checks if both amount and currency are equal.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// String returns a string representation such as "100.00 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(Scale), m.currency)
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON implements json.Marshaler interface.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:   m.amount.StringFixed(Scale),
		Currency: string(m.currency),
	})
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (m *Money) UnmarshalJSON(data []byte) error {
	var aux moneyJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	parsed, err := Parse(aux.Amount, Code(aux.Currency))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
