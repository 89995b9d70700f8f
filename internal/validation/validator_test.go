package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/receipt-scanner/internal/types"
)

func amount(s string) *decimal.Decimal {
	return types.Amount(decimal.RequireFromString(s))
}

func receiptWith(subtotal, cash, change string) *types.Receipt {
	r := &types.Receipt{
		SourceFile: "cafe.csv",
		Items: []types.LineItem{
			types.NewItemFromUnitPrice("Chicken Burger", 2, decimal.RequireFromString("7.50")),
			types.NewItemFromUnitPrice("Fries", 1, decimal.RequireFromString("3.25")),
		},
	}
	if subtotal != "" {
		r.Subtotal = amount(subtotal)
	}
	if cash != "" {
		r.Cash = amount(cash)
	}
	if change != "" {
		r.Change = amount(change)
	}
	return r
}

func rules(issues []*Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Rule)
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		receipt *types.Receipt
		rules   []string
	}{
		{"consistent", receiptWith("18.25", "20.00", "1.75"), []string{}},
		{"within tolerance", receiptWith("18.26", "20.00", "1.74"), []string{}},
		{"no summary fields", receiptWith("", "", ""), []string{}},
		{"subtotal mismatch", receiptWith("19.00", "", ""), []string{"subtotal_matches_items"}},
		{"wrong change", receiptWith("18.25", "20.00", "2.75"), []string{"change_matches_cash"}},
		{"cash short", receiptWith("18.25", "10.00", "-8.25"), []string{"cash_covers_subtotal"}},
		{"change without cash", receiptWith("18.25", "", "5.00"), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Validate(tt.receipt)
			assert.Equal(t, tt.rules, rules(issues))
		})
	}
}

func TestValidate_Items(t *testing.T) {
	r := &types.Receipt{
		SourceFile: "x.txt",
		Items: []types.LineItem{
			{Name: "Refund", Quantity: 0, LineTotal: decimal.RequireFromString("-2"), LineNumber: 7},
		},
	}

	issues := Validate(r)
	require.Len(t, issues, 2)
	assert.Equal(t, "positive_quantity", issues[0].Rule)
	assert.Equal(t, "non_negative_total", issues[1].Rule)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Contains(t, issues[0].Error(), "x.txt:7")
}

func TestValidator_TreatWarningsAsErrors(t *testing.T) {
	v := NewValidator(Options{TreatWarningsAsErrors: true})
	issues := v.Validate(receiptWith("18.25", "10.00", "-8.25"))
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityError, issues[0].Severity)

	assert.Nil(t, v.Validate(nil))
}

func TestFormatIssues(t *testing.T) {
	assert.Equal(t, "No validation issues.", FormatIssues(nil))

	issues := Validate(receiptWith("19.00", "10.00", ""))
	out := FormatIssues(issues)
	assert.Contains(t, out, "1 error(s) and 1 warning(s)")
	assert.Contains(t, out, "[ERROR] cafe.csv, Field 'Subtotal'")
}
