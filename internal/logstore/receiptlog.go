package logstore

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/receipt-scanner/internal/types"
	"github.com/ginjaninja78/receipt-scanner/pkg/utils"
)

// LogExtension is the extension of receipt logs.
const LogExtension = ".csv"

// ErrNoLogs is returned when the logs directory is missing or holds no logs.
var ErrNoLogs = errors.New("no receipt logs found")

// Summary row labels.
const (
	labelSubtotal = "Subtotal"
	labelCash     = "Cash"
	labelChange   = "Change"
)

// =============================================================================
// WRITING
// =============================================================================

// WriteReceiptLog writes a receipt to path in the receipt log format.
//
// PARAMETERS:
//   - path: The output file path. Its directory is created if needed.
//   - receipt: The receipt to write. Summary fields that are nil are omitted.
//
// RETURNS:
//   - An error if the file cannot be written.
func WriteReceiptLog(path string, receipt *types.Receipt) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create receipt log: %w", err)
	}
	defer file.Close()

	if err := EncodeReceiptLog(file, receipt); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// EncodeReceiptLog writes a receipt in the receipt log format to w.
func EncodeReceiptLog(w io.Writer, receipt *types.Receipt) error {
	writer := csv.NewWriter(w)

	for _, item := range receipt.Items {
		row := []string{item.Name, strconv.Itoa(item.Quantity), item.LineTotal.StringFixed(2)}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	summary := []struct {
		label string
		value *decimal.Decimal
	}{
		{labelSubtotal, receipt.Subtotal},
		{labelCash, receipt.Cash},
		{labelChange, receipt.Change},
	}
	for _, field := range summary {
		if field.value == nil {
			continue
		}
		if err := writer.Write([]string{field.label, field.value.StringFixed(2)}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// =============================================================================
// READING
// =============================================================================

// ReadReceiptLog reads one receipt log.
//
// RETURNS:
//   - The receipt. Items keep the row number they were read from.
//   - An error if the file cannot be opened or is not CSV.
//
// ROW HANDLING:
//   - First cell "Subtotal", "Cash" or "Change": sets that summary field
//   - Any other row with at least three cells: an item
//   - Short rows and rows with unreadable numbers are skipped
func ReadReceiptLog(path string) (*types.Receipt, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat receipt log: %w", err)
	}

	receipt, err := DecodeReceiptLog(bufio.NewReader(file), path)
	if err != nil {
		return nil, err
	}
	receipt.ScannedAt = info.ModTime()
	return receipt, nil
}

// DecodeReceiptLog reads a receipt log from r. source is recorded on the
// receipt and its items.
func DecodeReceiptLog(r io.Reader, source string) (*types.Receipt, error) {
	reader := csv.NewReader(r)

	// Item rows and summary rows have different widths.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	receipt := &types.Receipt{SourceFile: source}

	rowNumber := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		rowNumber++

		if len(row) == 0 {
			continue
		}

		switch strings.TrimSpace(row[0]) {
		case labelSubtotal:
			setSummaryField(&receipt.Subtotal, row)
		case labelCash:
			setSummaryField(&receipt.Cash, row)
		case labelChange:
			setSummaryField(&receipt.Change, row)
		default:
			item, ok := parseItemRow(row)
			if !ok {
				continue
			}
			item.SourceFile = source
			item.LineNumber = rowNumber
			receipt.Items = append(receipt.Items, item)
		}
	}

	return receipt, nil
}

// setSummaryField stores the second cell of a summary row.
func setSummaryField(target **decimal.Decimal, row []string) {
	if len(row) < 2 {
		return
	}
	value, err := decimal.NewFromString(strings.TrimSpace(row[1]))
	if err != nil {
		return
	}
	*target = types.Amount(value)
}

// parseItemRow reads a "name,quantity,total" row.
func parseItemRow(row []string) (types.LineItem, bool) {
	if len(row) < 3 {
		return types.LineItem{}, false
	}

	name := strings.TrimSpace(row[0])
	if name == "" {
		return types.LineItem{}, false
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(row[1]))
	if err != nil {
		return types.LineItem{}, false
	}

	total, err := decimal.NewFromString(strings.TrimSpace(row[2]))
	if err != nil {
		return types.LineItem{}, false
	}

	return types.NewItemFromLineTotal(name, quantity, total), true
}

// ReadReceiptLogs reads every receipt log in dir, in file name order.
//
// RETURNS:
//   - The receipts.
//   - ErrNoLogs if dir does not exist or holds no .csv files.
//   - An error if any log cannot be read.
func ReadReceiptLogs(dir string) ([]*types.Receipt, error) {
	paths, err := ListFiles(dir, LogExtension)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoLogs)
	}

	receipts := make([]*types.Receipt, 0, len(paths))
	for _, path := range paths {
		receipt, err := ReadReceiptLog(path)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// ListFiles returns the files in dir with the given extension, sorted by
// name. A missing directory yields ErrNoLogs.
func ListFiles(dir, extension string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoLogs)
	}
	return utils.DiscoverFiles(dir, extension)
}
