package money

// Code represents a currency code (e.g., "USD", "EUR").
type Code string

// Supported currency codes
const (
	USD Code = "USD" // US Dollar
	EUR Code = "EUR" // Euro
	GBP Code = "GBP" // British Pound
	RUB Code = "RUB" // Russian Ruble
)

// DefaultCode is the default currency code (USD)
var DefaultCode = USD

var supported = []Code{USD, EUR, GBP, RUB}

// IsSupported checks if the ledger accepts balances in this currency.
func (c Code) IsSupported() bool {
	for _, s := range supported {
		if s == c {
			return true
		}
	}
	return false
}

// String returns the string representation of the currency code.
func (c Code) String() string {
	return string(c)
}

// Supported returns the list of supported currency codes.
func Supported() []Code {
	out := make([]Code, len(supported))
	copy(out, supported)
	return out
}
