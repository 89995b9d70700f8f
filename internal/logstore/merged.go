package logstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/receipt-scanner/internal/types"
)

// MergedRow is one row of the merged receipts file.
type MergedRow struct {
	Item     string `csv:"Item"`
	Quantity string `csv:"Quantity"`
	Price    string `csv:"Price"`
	Total    string `csv:"Total"`
}

// NewMergedRow converts a line item to a merged row.
func NewMergedRow(item types.LineItem) MergedRow {
	return MergedRow{
		Item:     item.Name,
		Quantity: strconv.Itoa(item.Quantity),
		Price:    item.UnitPrice.String(),
		Total:    item.LineTotal.String(),
	}
}

// LineItem converts a merged row back to a line item.
// Total is recomputed from Quantity and Price when it is missing.
func (r MergedRow) LineItem() (types.LineItem, error) {
	quantity, err := strconv.Atoi(strings.TrimSpace(r.Quantity))
	if err != nil {
		return types.LineItem{}, fmt.Errorf("invalid quantity %q: %w", r.Quantity, err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return types.LineItem{}, fmt.Errorf("invalid price %q: %w", r.Price, err)
	}

	item := types.NewItemFromUnitPrice(strings.TrimSpace(r.Item), quantity, price)
	if total := strings.TrimSpace(r.Total); total != "" {
		item.LineTotal, err = decimal.NewFromString(total)
		if err != nil {
			return types.LineItem{}, fmt.Errorf("invalid total %q: %w", r.Total, err)
		}
	}
	return item, nil
}

// WriteMerged writes items to path with an "Item,Quantity,Price,Total"
// header.
func WriteMerged(path string, items []types.LineItem) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create merged file: %w", err)
	}
	defer file.Close()

	if err := EncodeMerged(file, items); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// EncodeMerged writes items in the merged format to w.
func EncodeMerged(w io.Writer, items []types.LineItem) error {
	rows := make([]*MergedRow, 0, len(items))
	for _, item := range items {
		row := NewMergedRow(item)
		rows = append(rows, &row)
	}
	return gocsv.Marshal(&rows, w)
}

// ReadMerged reads a merged receipts file.
//
// RETURNS:
//   - The items, with SourceFile set to path and LineNumber to the CSV row.
//   - An error if the file cannot be read or a row holds a bad number.
func ReadMerged(path string) ([]types.LineItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open merged file: %w", err)
	}
	defer file.Close()

	var rows []*MergedRow
	if err := gocsv.Unmarshal(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	items := make([]types.LineItem, 0, len(rows))
	for i, row := range rows {
		item, err := row.LineItem()
		if err != nil {
			// +2 for the header and 1-based rows.
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		item.SourceFile = path
		item.LineNumber = i + 2
		items = append(items, item)
	}
	return items, nil
}
