package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewItem(t *testing.T) {
	fromUnit := NewItemFromUnitPrice("Latte", 3, decimal.RequireFromString("4.50"))
	assert.True(t, decimal.RequireFromString("13.5").Equal(fromUnit.LineTotal))

	fromTotal := NewItemFromLineTotal("Bagel", 3, decimal.RequireFromString("10.00"))
	assert.True(t, decimal.RequireFromString("3.33").Equal(fromTotal.UnitPrice))

	zero := NewItemFromLineTotal("Bag", 0, decimal.RequireFromString("0.10"))
	assert.True(t, decimal.RequireFromString("0.10").Equal(zero.UnitPrice))
}

func TestReceiptHelpers(t *testing.T) {
	r := &Receipt{Items: []LineItem{
		NewItemFromUnitPrice("Latte", 2, decimal.RequireFromString("4.50")),
		NewItemFromUnitPrice("Bagel", 1, decimal.RequireFromString("2.25")),
	}}
	assert.True(t, decimal.RequireFromString("11.25").Equal(r.ItemsTotal()))
	assert.False(t, r.HasSummaryFields())

	r.Change = Amount(decimal.Zero)
	assert.True(t, r.HasSummaryFields())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.56", FormatMoney(decimal.RequireFromString("1234.56"), "usd"))
	assert.Equal(t, "$0.50", FormatMoney(decimal.RequireFromString("0.499"), "NOPE"))
	assert.Equal(t, "-", FormatOptionalMoney(nil, "USD"))
}
