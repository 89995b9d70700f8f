package logstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/receipt-scanner/internal/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleReceipt() *types.Receipt {
	return &types.Receipt{
		SourceFile: "cafe.jpg",
		Items: []types.LineItem{
			types.NewItemFromUnitPrice("Chicken Burger", 2, dec("7.50")),
			types.NewItemFromUnitPrice("Fries, large", 1, dec("3.25")),
		},
		Subtotal: types.Amount(dec("18.25")),
		Cash:     types.Amount(dec("20")),
		Change:   types.Amount(dec("1.75")),
	}
}

func TestTextBlocks_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cafe_20240101_120000.txt")
	blocks := []string{"THE CORNER CAFE\nTel 555", "Chicken Burger 2 7.50\nFries 1 3.25"}

	require.NoError(t, WriteTextBlocks(path, blocks))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "THE CORNER CAFE\nTel 555\n\nChicken Burger 2 7.50\nFries 1 3.25\n\n", string(data))

	got, err := ReadTextBlocks(path)
	require.NoError(t, err)
	assert.Equal(t, blocks, got)
}

func TestEncodeReceiptLog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeReceiptLog(&buf, sampleReceipt()))

	expected := "Chicken Burger,2,15.00\n" +
		"\"Fries, large\",1,3.25\n" +
		"Subtotal,18.25\n" +
		"Cash,20.00\n" +
		"Change,1.75\n"
	assert.Equal(t, expected, buf.String())
}

func TestEncodeReceiptLog_OmitsMissingFields(t *testing.T) {
	r := sampleReceipt()
	r.Cash = nil
	r.Change = nil

	var buf bytes.Buffer
	require.NoError(t, EncodeReceiptLog(&buf, r))
	assert.NotContains(t, buf.String(), "Cash")
	assert.NotContains(t, buf.String(), "Change")
}

func TestReceiptLog_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cafe_20240101_120000.csv")
	require.NoError(t, WriteReceiptLog(path, sampleReceipt()))

	got, err := ReadReceiptLog(path)
	require.NoError(t, err)

	require.Len(t, got.Items, 2)
	assert.Equal(t, "Chicken Burger", got.Items[0].Name)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, dec("15").Equal(got.Items[0].LineTotal))
	assert.True(t, dec("7.5").Equal(got.Items[0].UnitPrice))
	assert.Equal(t, "Fries, large", got.Items[1].Name)
	assert.Equal(t, 2, got.Items[1].LineNumber)

	require.NotNil(t, got.Subtotal)
	require.NotNil(t, got.Cash)
	require.NotNil(t, got.Change)
	assert.True(t, dec("18.25").Equal(*got.Subtotal))
	assert.True(t, dec("20").Equal(*got.Cash))
	assert.True(t, dec("1.75").Equal(*got.Change))
	assert.False(t, got.ScannedAt.IsZero())
}

func TestDecodeReceiptLog_SkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"Latte,2,9.00",
		"Short,1",
		"Bad,two,3.00",
		"Bad total,1,abc",
		",1,2.00",
		"Subtotal",
		"Cash,oops",
		"Change,0.50",
	}, "\n")

	got, err := DecodeReceiptLog(strings.NewReader(input), "x.csv")
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	assert.Equal(t, "Latte", got.Items[0].Name)
	assert.Equal(t, "x.csv", got.Items[0].SourceFile)
	assert.Nil(t, got.Subtotal)
	assert.Nil(t, got.Cash)
	require.NotNil(t, got.Change)
	assert.True(t, dec("0.5").Equal(*got.Change))
}

func TestReadReceiptLogs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteReceiptLog(filepath.Join(dir, "b.csv"), sampleReceipt()))
	require.NoError(t, WriteReceiptLog(filepath.Join(dir, "a.CSV"), &types.Receipt{Subtotal: types.Amount(dec("1"))}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0755))

	receipts, err := ReadReceiptLogs(dir)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, filepath.Join(dir, "a.CSV"), receipts[0].SourceFile)
	assert.Len(t, receipts[1].Items, 2)
}

func TestReadReceiptLogs_NoLogs(t *testing.T) {
	_, err := ReadReceiptLogs(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, ErrNoLogs))

	_, err = ReadReceiptLogs(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoLogs))
}

func TestMerged_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merged_receipts.csv")
	items := []types.LineItem{
		types.NewItemFromUnitPrice("Latte", 2, dec("4.50")),
		types.NewItemFromUnitPrice("Bagel", 3, dec("2")),
	}

	require.NoError(t, WriteMerged(path, items))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Item,Quantity,Price,Total", lines[0])
	assert.Equal(t, "Latte,2,4.5,9", lines[1])

	got, err := ReadMerged(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bagel", got[1].Name)
	assert.Equal(t, 3, got[1].Quantity)
	assert.True(t, dec("6").Equal(got[1].LineTotal))
	assert.Equal(t, 3, got[1].LineNumber)
}

func TestReadMerged_BadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merged_receipts.csv")
	require.NoError(t, os.WriteFile(path, []byte("Item,Quantity,Price,Total\nLatte,two,4.50,9\n"), 0644))

	_, err := ReadMerged(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestMergedRow_MissingTotal(t *testing.T) {
	item, err := MergedRow{Item: "Tea", Quantity: "3", Price: "2.00"}.LineItem()
	require.NoError(t, err)
	assert.True(t, dec("6").Equal(item.LineTotal))
}
