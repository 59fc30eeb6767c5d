package engine

import "github.com/shopspring/decimal"

// =============================================================================
// CURRENCY - TWD is the settlement currency; JPY is bridged via the
// transaction's exchange rate
// =============================================================================

type Currency string

const (
	CurrencyTWD Currency = "TWD"
	CurrencyJPY Currency = "JPY"
)

// ParseCurrency validates a currency code from an external caller.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case CurrencyTWD, CurrencyJPY:
		return Currency(s), nil
	default:
		return "", &UnsupportedCurrencyError{Code: s}
	}
}

// Convert bridges an amount between TWD and JPY using the JPY->TWD
// multiplier of the transaction being evaluated. One transaction, one
// exchange rate, applied uniformly to every rule touching it; rule-specific
// rates deliberately do not exist.
func Convert(v decimal.Decimal, from, to Currency, jpyToTWD decimal.Decimal) decimal.Decimal {
	if from == to {
		return v
	}
	if from == CurrencyJPY && to == CurrencyTWD {
		return v.Mul(jpyToTWD)
	}
	if from == CurrencyTWD && to == CurrencyJPY {
		if jpyToTWD.IsZero() {
			return v
		}
		return v.Div(jpyToTWD)
	}
	return v
}

// UnsupportedCurrencyError is returned by ParseCurrency for codes outside
// the TWD/JPY pair the engine settles in.
type UnsupportedCurrencyError struct {
	Code string
}

func (e *UnsupportedCurrencyError) Error() string {
	return "unsupported currency " + e.Code + " (want TWD or JPY)"
}
