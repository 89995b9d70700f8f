// =============================================================================
// Receipt Scanner - Receipt Text Parser
// =============================================================================
//
// This module turns the OCR text of a receipt into line items and the
// subtotal/cash/change fields. It works line by line:
//
//   1. Trim the line; skip it if empty.
//   2. If it shows a subtotal, cash or change amount, record the amount
//      (first match wins) and move on.
//   3. If it contains an ignore keyword (case-insensitive substring), skip it.
//   4. Read an item with the profile's strategy ("tokens" or "pattern").
//      Lines that do not match are skipped.
//   5. Apply the profile's name rules and derive the missing price.
//
// Nothing here fails on bad input: OCR output is noisy and a line that
// cannot be read is simply not an item.
//
// =============================================================================

package receiptparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/receipt-scanner/internal/config"
	"github.com/ginjaninja78/receipt-scanner/internal/types"
)

// ErrNoItems is returned by ParseReceipt when the text holds neither items
// nor any summary field.
var ErrNoItems = errors.New("no line items or summary fields found")

// maxLineLength bounds a single OCR line.
const maxLineLength = 1024 * 1024

// =============================================================================
// PARSER STRUCTURE
// =============================================================================

// Parser extracts receipt data according to a parsing profile.
type Parser struct {
	profile *config.Profile
	extract itemExtractor
	names   *NameNormalizer
	logger  zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a Parser for the given profile.
//
// PARAMETERS:
//   - profile: The parsing profile. Nil means the built-in default profile.
//   - logger: Receives debug output about skipped lines.
//
// RETURNS:
//   - A new Parser.
//   - An error if the profile is invalid.
func New(profile *config.Profile, logger zerolog.Logger) (*Parser, error) {
	if profile == nil {
		profile = config.DefaultProfile()
	}
	if err := config.ValidateProfile(profile); err != nil {
		return nil, err
	}

	names, err := NewNameNormalizer(profile.NameRules)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", profile.Name, err)
	}

	p := &Parser{
		profile: profile,
		names:   names,
		logger:  logger.With().Str("profile", profile.Name).Logger(),
		now:     time.Now,
	}

	switch profile.Strategy {
	case config.StrategyPattern:
		p.extract = extractPattern
	default:
		p.extract = extractTokens
	}

	return p, nil
}

// =============================================================================
// LINE-LEVEL FUNCTIONS
// =============================================================================

// IsIgnored reports whether the line contains one of the profile's ignore
// keywords.
func (p *Parser) IsIgnored(line string) bool {
	lower := strings.ToLower(line)
	for _, keyword := range p.profile.IgnoreKeywords {
		if keyword != "" && strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ParseLine reads a single line as an item.
//
// RETURNS:
//   - The item and true if the line is an item.
//   - false for empty lines, ignored lines, and lines that don't match.
func (p *Parser) ParseLine(line string) (types.LineItem, bool) {
	line = strings.TrimSpace(line)
	if line == "" || p.IsIgnored(line) {
		return types.LineItem{}, false
	}

	raw, ok := p.extract(line)
	if !ok {
		return types.LineItem{}, false
	}

	name, err := p.names.Normalize(raw.name)
	if err != nil || strings.TrimSpace(name) == "" {
		return types.LineItem{}, false
	}

	if p.profile.PriceKind == config.PriceTotal {
		return types.NewItemFromLineTotal(name, raw.quantity, raw.amount), true
	}
	return types.NewItemFromUnitPrice(name, raw.quantity, raw.amount), true
}

// =============================================================================
// DOCUMENT-LEVEL FUNCTIONS
// =============================================================================

// ParseItems reads every item in r.
//
// PARAMETERS:
//   - r: The OCR text.
//   - source: The file name recorded on each item.
//
// RETURNS:
//   - The items in the order they appear. Empty when nothing matched.
//   - An error only if reading r fails.
func (p *Parser) ParseItems(r io.Reader, source string) ([]types.LineItem, error) {
	receipt, err := p.parse(r, source)
	if err != nil {
		return nil, err
	}
	return receipt.Items, nil
}

// ParseReceipt reads the items and the subtotal/cash/change fields in r.
//
// RETURNS:
//   - The receipt summary.
//   - ErrNoItems if nothing at all was recognized, or a read error.
func (p *Parser) ParseReceipt(r io.Reader, source string) (*types.Receipt, error) {
	receipt, err := p.parse(r, source)
	if err != nil {
		return nil, err
	}
	if len(receipt.Items) == 0 && !receipt.HasSummaryFields() {
		return nil, fmt.Errorf("%s: %w", source, ErrNoItems)
	}
	return receipt, nil
}

// ParseItemsFile opens path and calls ParseItems.
func (p *Parser) ParseItemsFile(path string) ([]types.LineItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return p.ParseItems(f, path)
}

// ParseReceiptFile opens path and calls ParseReceipt.
func (p *Parser) ParseReceiptFile(path string) (*types.Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return p.ParseReceipt(f, path)
}

// parse is the shared line loop.
func (p *Parser) parse(r io.Reader, source string) (*types.Receipt, error) {
	receipt := &types.Receipt{
		SourceFile: source,
		ScannedAt:  p.now(),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	lineNumber := 0
	skipped := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if p.readSummaryField(line, receipt) {
			continue
		}

		item, ok := p.ParseLine(line)
		if !ok {
			skipped++
			p.logger.Debug().Str("file", source).Int("line", lineNumber).Str("text", line).Msg("skipped line")
			continue
		}

		item.SourceFile = source
		item.LineNumber = lineNumber
		receipt.Items = append(receipt.Items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}

	p.logger.Debug().
		Str("file", source).
		Int("items", len(receipt.Items)).
		Int("skipped", skipped).
		Msg("parsed receipt text")

	return receipt, nil
}

// readSummaryField records the subtotal, cash and change amounts shown on
// the line. It reports whether the line was a summary line.
//
// Each field keeps the first amount found. A line may carry more than one
// field, e.g. "CASH 20.00 CHANGE 7.70".
func (p *Parser) readSummaryField(line string, receipt *types.Receipt) bool {
	fields := []struct {
		re     *regexp.Regexp
		target **decimal.Decimal
	}{
		{subtotalPattern, &receipt.Subtotal},
		{cashPattern, &receipt.Cash},
		{changePattern, &receipt.Change},
	}

	matched := false
	for _, field := range fields {
		m := field.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		amount, err := parseAmount(m[1])
		if err != nil {
			continue
		}
		matched = true
		if *field.target == nil {
			*field.target = types.Amount(amount)
		}
	}
	return matched
}
