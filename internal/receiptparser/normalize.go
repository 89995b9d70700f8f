// =============================================================================
// Receipt Scanner - Item Name Normalization
// =============================================================================
//
// OCR rarely reads a product name the same way twice. Name rules from the
// parsing profile clean item names up before they are stored, so that
// "  COFFEE   LATTE" and "Coffee Latte" end up grouped together in reports.
//
// SUPPORTED ACTIONS:
//   - trim, collapse_spaces, strip_chars
//   - uppercase, lowercase, title
//   - replace, regex_replace
//   - lookup
//
// Rules run in the order they are listed in the profile.
//
// =============================================================================

package receiptparser

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/receipt-scanner/internal/config"
)

// =============================================================================
// NAME NORMALIZER
// =============================================================================

// NameNormalizer applies a profile's name rules to item names.
type NameNormalizer struct {
	rules []compiledRule
}

// compiledRule is a NameRule with its regular expression compiled once.
type compiledRule struct {
	config.NameRule
	re *regexp.Regexp
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NewNameNormalizer compiles the given rules.
//
// RETURNS:
//   - A normalizer ready to use.
//   - An error if a regex_replace pattern is empty or does not compile.
func NewNameNormalizer(rules []config.NameRule) (*NameNormalizer, error) {
	n := &NameNormalizer{rules: make([]compiledRule, 0, len(rules))}
	for i, rule := range rules {
		cr := compiledRule{NameRule: rule}
		if rule.Type == "regex_replace" {
			// An empty pattern matches between every rune.
			if rule.Find == "" {
				return nil, fmt.Errorf("name rule %d: regex_replace needs a find pattern", i+1)
			}
			re, err := regexp.Compile(rule.Find)
			if err != nil {
				return nil, fmt.Errorf("name rule %d: invalid pattern %q: %w", i+1, rule.Find, err)
			}
			cr.re = re
		}
		n.rules = append(n.rules, cr)
	}
	return n, nil
}

// Normalize applies every rule to name, in order.
func (n *NameNormalizer) Normalize(name string) (string, error) {
	result := name
	for _, rule := range n.rules {
		var err error
		result, err = applyRule(result, rule)
		if err != nil {
			return "", fmt.Errorf("name rule '%s' failed: %w", rule.Type, err)
		}
	}
	return result, nil
}

// applyRule applies a single name rule.
func applyRule(value string, rule compiledRule) (string, error) {
	switch rule.Type {
	case "trim":
		return strings.TrimSpace(value), nil

	case "collapse_spaces":
		// "CAFE    LATTE " -> "CAFE LATTE"
		return strings.TrimSpace(whitespaceRun.ReplaceAllString(value, " ")), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "title":
		// "CAFE LATTE" -> "Cafe Latte"
		return cases.Title(language.Und).String(strings.ToLower(value)), nil

	case "replace":
		if rule.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, rule.Find, rule.Value), nil

	case "regex_replace":
		return rule.re.ReplaceAllString(value, rule.Value), nil

	case "strip_chars":
		// Remove OCR noise such as "*" or "#" printed next to names.
		return strings.Map(func(r rune) rune {
			if strings.ContainsRune(rule.Value, r) {
				return -1
			}
			return r
		}, value), nil

	case "lookup":
		if replacement, exists := rule.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown name rule type: %s", rule.Type)
	}
}
