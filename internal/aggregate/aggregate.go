// =============================================================================
// Receipt Scanner - Aggregation
// =============================================================================
//
// This module merges the line items of many receipts into one table and
// summarizes it per item name. It is the input of the charts and the
// workbook.
//
// ORDERING:
//   - ByItem:   descending total quantity, ties by name
//   - ByAmount: descending total amount, ties by name
//   - Top(n):   the first n groups of ByItem
//
// =============================================================================

package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/receipt-scanner/internal/types"
)

// Group is the summary of every row sharing one item name.
type Group struct {
	// Name is the item name.
	Name string

	// Quantity is the total number of units sold.
	Quantity int

	// Amount is the total sales amount.
	Amount decimal.Decimal

	// Rows is the number of line items merged into the group.
	Rows int
}

// Table holds the merged line items of many receipts.
type Table struct {
	items []types.LineItem
}

// Merge flattens the items of the given receipts into a Table, in receipt
// order.
func Merge(receipts []*types.Receipt) *Table {
	var items []types.LineItem
	for _, r := range receipts {
		if r == nil {
			continue
		}
		items = append(items, r.Items...)
	}
	return NewTable(items)
}

// NewTable creates a Table from line items.
func NewTable(items []types.LineItem) *Table {
	return &Table{items: items}
}

// Items returns the rows of the table.
func (t *Table) Items() []types.LineItem {
	return t.items
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.items)
}

// GrandTotal returns the sum of every row's line total. For rows read with
// a unit price this is the sum of quantity x unit price.
func (t *Table) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// TotalQuantity returns the number of units over all rows.
func (t *Table) TotalQuantity() int {
	total := 0
	for _, item := range t.items {
		total += item.Quantity
	}
	return total
}

// groups sums the rows per name, in first-seen order.
func (t *Table) groups() []Group {
	index := make(map[string]int)
	var groups []Group

	for _, item := range t.items {
		i, ok := index[item.Name]
		if !ok {
			i = len(groups)
			index[item.Name] = i
			groups = append(groups, Group{Name: item.Name, Amount: decimal.Zero})
		}
		groups[i].Quantity += item.Quantity
		groups[i].Amount = groups[i].Amount.Add(item.LineTotal)
		groups[i].Rows++
	}
	return groups
}

// ByItem groups the rows by item name, sorted by descending quantity.
func (t *Table) ByItem() []Group {
	groups := t.groups()
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Quantity != groups[j].Quantity {
			return groups[i].Quantity > groups[j].Quantity
		}
		return groups[i].Name < groups[j].Name
	})
	return groups
}

// ByAmount groups the rows by item name, sorted by descending amount.
func (t *Table) ByAmount() []Group {
	groups := t.groups()
	sort.SliceStable(groups, func(i, j int) bool {
		if c := groups[i].Amount.Cmp(groups[j].Amount); c != 0 {
			return c > 0
		}
		return groups[i].Name < groups[j].Name
	})
	return groups
}

// Top returns the n groups with the highest quantity. It returns every
// group when there are fewer than n.
func (t *Table) Top(n int) []Group {
	groups := t.ByItem()
	if n < 0 {
		n = 0
	}
	if n < len(groups) {
		groups = groups[:n]
	}
	return groups
}
