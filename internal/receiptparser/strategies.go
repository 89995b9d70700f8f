package receiptparser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// rawItem is what a strategy reads from one line, before name rules and
// price derivation.
type rawItem struct {
	name     string
	quantity int
	amount   decimal.Decimal
}

// itemExtractor reads an item from a trimmed, non-ignored line.
type itemExtractor func(line string) (rawItem, bool)

// =============================================================================
// TOKENS STRATEGY
// =============================================================================

// extractTokens splits the line on whitespace and reads it as
// "<name words...> <quantity> <price>".
//
// EXAMPLE:
//   "Chicken Burger 2 7.50" -> {"Chicken Burger", 2, 7.50}
func extractTokens(line string) (rawItem, bool) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return rawItem{}, false
	}

	qtyToken := parts[len(parts)-2]
	priceToken := parts[len(parts)-1]

	if !isDigits(qtyToken) {
		return rawItem{}, false
	}
	quantity, err := strconv.Atoi(qtyToken)
	if err != nil {
		return rawItem{}, false
	}

	price, err := decimal.NewFromString(priceToken)
	if err != nil {
		return rawItem{}, false
	}

	return rawItem{
		name:     strings.Join(parts[:len(parts)-2], " "),
		quantity: quantity,
		amount:   price,
	}, true
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// =============================================================================
// PATTERN STRATEGY
// =============================================================================

// itemPattern matches "<name> <qty> <amount>" where the quantity may be
// written "2", "2x" or "x2" and the amount may carry a currency symbol and
// a comma decimal separator.
var itemPattern = regexp.MustCompile(
	`^(.*?\S)\s+(?:[xX]\s*)?(\d{1,4})(?:\s*[xX])?\s+[$€£]?\s*(-?\d{1,7}(?:[.,]\d{1,2})?)$`,
)

// extractPattern reads an item with itemPattern.
//
// EXAMPLE:
//   "Flat White x2 $7,00" -> {"Flat White", 2, 7.00}
func extractPattern(line string) (rawItem, bool) {
	m := itemPattern.FindStringSubmatch(line)
	if m == nil {
		return rawItem{}, false
	}

	name := strings.TrimSpace(m[1])
	if !strings.ContainsFunc(name, unicode.IsLetter) {
		return rawItem{}, false
	}

	quantity, err := strconv.Atoi(m[2])
	if err != nil {
		return rawItem{}, false
	}

	amount, err := parseAmount(m[3])
	if err != nil {
		return rawItem{}, false
	}

	return rawItem{name: name, quantity: quantity, amount: amount}, true
}

// =============================================================================
// SUMMARY FIELDS
// =============================================================================

// amountGroup captures an amount with an optional currency symbol before it.
// The integer part may be grouped in thousands ("1,250.00", "1.250,00").
// The amount must end the line or be followed by something other than a
// digit or a separator, so "1,250.00" is never read as "1,25".
const amountGroup = `\s*[:\-]?\s*[$€£]?\s*` +
	`(-?(?:\d{1,3}(?:[,.]\d{3})+|\d+)(?:[.,]\d{1,2})?)` +
	`(?:$|[^\d.,]|[.,](?:$|\D))`

var (
	subtotalPattern = regexp.MustCompile(`(?i)\bsub\s*-?\s*total\b` + amountGroup)
	cashPattern     = regexp.MustCompile(`(?i)\bcash\b(?:\s+tendered)?` + amountGroup)
	changePattern   = regexp.MustCompile(`(?i)\bchange\b(?:\s+due)?` + amountGroup)
)

// separators strips thousands separators.
var separators = strings.NewReplacer(",", "", ".", "")

// parseAmount parses an amount that may use a comma as decimal separator
// and may group its integer part in thousands. A final separator followed
// by one or two digits is the decimal point; every other separator groups
// thousands.
//
// EXAMPLE:
//   "10,50" -> 10.50, "1,250.00" -> 1250.00, "1.250,00" -> 1250.00
func parseAmount(s string) (decimal.Decimal, error) {
	sep := strings.LastIndexAny(s, ".,")
	if sep >= 0 && len(s)-sep-1 <= 2 {
		return decimal.NewFromString(separators.Replace(s[:sep]) + "." + s[sep+1:])
	}
	return decimal.NewFromString(separators.Replace(s))
}
