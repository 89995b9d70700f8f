// =============================================================================
// Receipt Scanner - Validation Engine
// =============================================================================
//
// This module checks a parsed receipt for internal consistency. OCR output is
// noisy, so nothing here rejects a receipt: every problem is reported as an
// Issue and the caller decides what to do with it (print it, write it to the
// error log).
//
// CHECKS:
//   1. Item-level: quantity must be positive, line total must not be negative
//   2. Receipt-level: subtotal equals the sum of line totals
//   3. Receipt-level: change equals cash minus subtotal
//   4. Receipt-level: cash covers the subtotal
//
// SEVERITY:
//   - "error"   : the receipt contradicts itself (totals do not add up)
//   - "warning" : the receipt is suspicious but may be an OCR slip
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/receipt-scanner/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// DefaultTolerance is the largest difference accepted between two amounts
// that should be equal.
var DefaultTolerance = decimal.NewFromFloat(0.01)

// =============================================================================
// ISSUE TYPE
// =============================================================================

// Issue represents a single consistency problem on a receipt.
type Issue struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the receipt field or item the issue is about.
	Field string

	// Value is the offending value, as printed.
	Value string

	// Rule is the check that failed.
	Rule string

	// Message is a human-readable description.
	Message string

	// SourceFile is the receipt the issue was found in.
	SourceFile string

	// LineNumber is the item's line in the source, 0 for receipt-level issues.
	LineNumber int
}

// Error implements the error interface.
func (i *Issue) Error() string {
	location := i.SourceFile
	if i.LineNumber > 0 {
		location = fmt.Sprintf("%s:%d", i.SourceFile, i.LineNumber)
	}
	return fmt.Sprintf("[%s] %s, Field '%s': %s (value: '%s')",
		strings.ToUpper(i.Severity),
		location,
		i.Field,
		i.Message,
		i.Value,
	)
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator performs consistency checks on receipts.
type Validator struct {
	options Options
}

// Options contains options for validation.
type Options struct {
	// Tolerance is the accepted rounding difference between amounts.
	// Default: 0.01
	Tolerance decimal.Decimal

	// TreatWarningsAsErrors promotes every warning to an error.
	// Default: false
	TreatWarningsAsErrors bool
}

// DefaultOptions returns the default validation options.
func DefaultOptions() Options {
	return Options{
		Tolerance: DefaultTolerance,
	}
}

// NewValidator creates a Validator with the given options.
func NewValidator(options Options) *Validator {
	if options.Tolerance.IsZero() {
		options.Tolerance = DefaultTolerance
	}
	return &Validator{options: options}
}

// Validate checks a receipt with the default options.
//
// RETURNS:
//   - The issues found, in check order. Empty when the receipt is consistent.
func Validate(receipt *types.Receipt) []*Issue {
	return NewValidator(DefaultOptions()).Validate(receipt)
}

// Validate checks a receipt.
func (v *Validator) Validate(receipt *types.Receipt) []*Issue {
	if receipt == nil {
		return nil
	}

	var issues []*Issue
	for i := range receipt.Items {
		issues = append(issues, v.validateItem(receipt, &receipt.Items[i])...)
	}
	issues = append(issues, v.validateTotals(receipt)...)

	if v.options.TreatWarningsAsErrors {
		for _, issue := range issues {
			issue.Severity = SeverityError
		}
	}
	return issues
}

// validateItem runs the item-level checks.
func (v *Validator) validateItem(receipt *types.Receipt, item *types.LineItem) []*Issue {
	var issues []*Issue

	if item.Quantity <= 0 {
		issues = append(issues, &Issue{
			Severity:   SeverityWarning,
			Field:      item.Name,
			Value:      fmt.Sprintf("%d", item.Quantity),
			Rule:       "positive_quantity",
			Message:    "Quantity must be greater than zero",
			SourceFile: receipt.SourceFile,
			LineNumber: item.LineNumber,
		})
	}

	if item.LineTotal.IsNegative() {
		issues = append(issues, &Issue{
			Severity:   SeverityWarning,
			Field:      item.Name,
			Value:      item.LineTotal.StringFixed(2),
			Rule:       "non_negative_total",
			Message:    "Line total is negative",
			SourceFile: receipt.SourceFile,
			LineNumber: item.LineNumber,
		})
	}

	return issues
}

// validateTotals runs the receipt-level checks. Each check only runs when
// the fields it needs were found on the receipt.
func (v *Validator) validateTotals(receipt *types.Receipt) []*Issue {
	var issues []*Issue

	if receipt.Subtotal != nil && len(receipt.Items) > 0 {
		itemsTotal := receipt.ItemsTotal()
		if !v.equal(*receipt.Subtotal, itemsTotal) {
			issues = append(issues, &Issue{
				Severity:   SeverityError,
				Field:      "Subtotal",
				Value:      receipt.Subtotal.StringFixed(2),
				Rule:       "subtotal_matches_items",
				Message:    fmt.Sprintf("Subtotal does not match the sum of line totals (%s)", itemsTotal.StringFixed(2)),
				SourceFile: receipt.SourceFile,
			})
		}
	}

	if receipt.Subtotal != nil && receipt.Cash != nil {
		if receipt.Cash.LessThan(*receipt.Subtotal) {
			issues = append(issues, &Issue{
				Severity:   SeverityWarning,
				Field:      "Cash",
				Value:      receipt.Cash.StringFixed(2),
				Rule:       "cash_covers_subtotal",
				Message:    fmt.Sprintf("Cash is less than the subtotal (%s)", receipt.Subtotal.StringFixed(2)),
				SourceFile: receipt.SourceFile,
			})
		}

		if receipt.Change != nil {
			expected := receipt.Cash.Sub(*receipt.Subtotal)
			if !v.equal(*receipt.Change, expected) {
				issues = append(issues, &Issue{
					Severity:   SeverityError,
					Field:      "Change",
					Value:      receipt.Change.StringFixed(2),
					Rule:       "change_matches_cash",
					Message:    fmt.Sprintf("Change should be cash minus subtotal (%s)", expected.StringFixed(2)),
					SourceFile: receipt.SourceFile,
				})
			}
		}
	}

	return issues
}

// equal compares two amounts within the configured tolerance.
func (v *Validator) equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(v.options.Tolerance)
}

// =============================================================================
// ISSUE HELPERS
// =============================================================================

// CountBySeverity returns the number of errors and warnings.
func CountBySeverity(issues []*Issue) (errors, warnings int) {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return errors, warnings
}

// FormatIssues formats issues for display or logging.
//
// PARAMETERS:
//   - issues: The issues to format.
//
// RETURNS:
//   - A formatted string containing all issues.
func FormatIssues(issues []*Issue) string {
	if len(issues) == 0 {
		return "No validation issues."
	}

	var builder strings.Builder

	errs, warnings := CountBySeverity(issues)
	builder.WriteString(fmt.Sprintf("Validation found %d error(s) and %d warning(s):\n\n", errs, warnings))

	for i, issue := range issues {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Error()))
	}

	return builder.String()
}
