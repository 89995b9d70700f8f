// =============================================================================
// Receipt Scanner - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - receiptparser
//   - logstore
//   - validation
//   - aggregate
//
// =============================================================================

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LINE ITEM
// =============================================================================

// LineItem represents a single product row from a receipt.
type LineItem struct {
	// Name is the product name as read from the receipt, after name rules.
	Name string

	// Quantity is the number of units bought.
	Quantity int

	// UnitPrice is the price of one unit.
	// When the receipt only prints the line total, this is derived as
	// LineTotal / Quantity rounded to two places.
	UnitPrice decimal.Decimal

	// LineTotal is the amount charged for the row.
	// When the receipt only prints the unit price, this is Quantity * UnitPrice.
	LineTotal decimal.Decimal

	// SourceFile is the file the item was read from.
	SourceFile string

	// LineNumber is the 1-based line number inside SourceFile.
	// Useful for error reporting.
	LineNumber int
}

// NewItemFromUnitPrice builds a line item from a unit price.
func NewItemFromUnitPrice(name string, quantity int, unit decimal.Decimal) LineItem {
	return LineItem{
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unit,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// NewItemFromLineTotal builds a line item from the amount charged for the row.
func NewItemFromLineTotal(name string, quantity int, total decimal.Decimal) LineItem {
	unit := total
	if quantity > 0 {
		unit = total.DivRound(decimal.NewFromInt(int64(quantity)), 2)
	}
	return LineItem{
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unit,
		LineTotal: total,
	}
}

// =============================================================================
// RECEIPT SUMMARY
// =============================================================================

// Receipt is the summary parsed from one receipt's OCR text.
type Receipt struct {
	// SourceFile is the image, text, or log file the receipt came from.
	SourceFile string

	// Items contains every line item recognized on the receipt.
	Items []LineItem

	// Subtotal, Cash and Change are nil when the receipt did not show them.
	Subtotal *decimal.Decimal
	Cash     *decimal.Decimal
	Change   *decimal.Decimal

	// ScannedAt is when the receipt was parsed.
	ScannedAt time.Time
}

// ItemsTotal returns the sum of all line totals.
func (r *Receipt) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// HasSummaryFields reports whether any of subtotal, cash or change was found.
func (r *Receipt) HasSummaryFields() bool {
	return r.Subtotal != nil || r.Cash != nil || r.Change != nil
}

// Amount returns a pointer to a copy of d, for the optional summary fields.
func Amount(d decimal.Decimal) *decimal.Decimal {
	return &d
}
