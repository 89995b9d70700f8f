package types

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount for display in the given ISO-4217 currency,
// e.g. "$1,234.56". Unknown currency codes fall back to USD.
func FormatMoney(amount decimal.Decimal, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	currency := money.GetCurrency(code)
	if currency == nil {
		code = money.USD
		currency = money.GetCurrency(code)
	}

	cents := amount.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return money.New(cents, code).Display()
}

// FormatOptionalMoney is FormatMoney for the optional summary fields.
// A nil amount renders as "-".
func FormatOptionalMoney(amount *decimal.Decimal, currencyCode string) string {
	if amount == nil {
		return "-"
	}
	return FormatMoney(*amount, currencyCode)
}
