package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/receipt-scanner/internal/aggregate"
	"github.com/ginjaninja78/receipt-scanner/internal/logstore"
	"github.com/ginjaninja78/receipt-scanner/internal/types"
	"github.com/ginjaninja78/receipt-scanner/internal/validation"
)

// =============================================================================
// RECEIPT SUMMARIES
// =============================================================================

// ReceiptSummary is one receipt log with its validation findings.
type ReceiptSummary struct {
	Receipt *types.Receipt
	Issues  []*validation.Issue
}

// SummarizeLogs reads every receipt log in dir and validates it.
//
// RETURNS:
//   - The summaries in file name order.
//   - logstore.ErrNoLogs (wrapped) if dir is missing or empty.
func SummarizeLogs(dir string, validator *validation.Validator) ([]ReceiptSummary, error) {
	receipts, err := logstore.ReadReceiptLogs(dir)
	if err != nil {
		return nil, err
	}

	summaries := make([]ReceiptSummary, len(receipts))
	for i, receipt := range receipts {
		summaries[i] = ReceiptSummary{
			Receipt: receipt,
			Issues:  validator.Validate(receipt),
		}
	}
	return summaries, nil
}

// itemNameWidth is the column width of item names in printed summaries.
const itemNameWidth = 32

// WriteSummaries prints the summaries followed by the overall totals.
// Amounts are shown in the given ISO-4217 currency.
func WriteSummaries(w io.Writer, summaries []ReceiptSummary, currency string) error {
	bw := bufio.NewWriter(w)

	receipts := make([]*types.Receipt, 0, len(summaries))
	for _, s := range summaries {
		receipts = append(receipts, s.Receipt)
		writeReceipt(bw, s, currency)
	}

	table := aggregate.Merge(receipts)
	fmt.Fprintf(bw, "=== Totals ===\n"+
		"Receipts:   %d\n"+
		"Line items: %d\n"+
		"Quantity:   %d\n"+
		"Amount:     %s\n",
		len(summaries),
		table.Len(),
		table.TotalQuantity(),
		types.FormatMoney(table.GrandTotal(), currency))

	return bw.Flush()
}

func writeReceipt(w io.Writer, s ReceiptSummary, currency string) {
	r := s.Receipt
	fmt.Fprintf(w, "=== %s ===\n", filepath.Base(r.SourceFile))

	if len(r.Items) == 0 {
		fmt.Fprintln(w, "  (no items)")
	}
	for _, item := range r.Items {
		fmt.Fprintf(w, "  %-*s %4d x %10s = %10s\n",
			itemNameWidth,
			truncateName(item.Name, itemNameWidth),
			item.Quantity,
			types.FormatMoney(item.UnitPrice, currency),
			types.FormatMoney(item.LineTotal, currency))
	}

	fmt.Fprintf(w, "  Items total: %s\n", types.FormatMoney(r.ItemsTotal(), currency))
	fmt.Fprintf(w, "  Subtotal:    %s\n", types.FormatOptionalMoney(r.Subtotal, currency))
	fmt.Fprintf(w, "  Cash:        %s\n", types.FormatOptionalMoney(r.Cash, currency))
	fmt.Fprintf(w, "  Change:      %s\n", types.FormatOptionalMoney(r.Change, currency))

	for _, line := range strings.Split(validation.FormatIssues(s.Issues), "\n") {
		if line != "" {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	fmt.Fprintln(w)
}

func truncateName(name string, width int) string {
	runes := []rune(name)
	if len(runes) <= width {
		return name
	}
	return string(runes[:width-1]) + "~"
}
