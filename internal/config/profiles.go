// =============================================================================
// Receipt Scanner - Parsing Profiles
// =============================================================================
//
// A parsing profile describes how the text of one family of receipts is read.
// Shops print their receipts differently: some put the unit price last, some
// the line total; some stamp "TEL" or "TABLE" lines that must not be taken
// for items. Each profile lives in its own YAML file in the profiles
// directory and is selected by matching the input file name against its
// glob patterns.
//
// EXAMPLE (configs/cafe.yaml):
//
//   name: cafe
//   file_matching_patterns: ["cafe_*", "*_cafe_*"]
//   strategy: pattern
//   price_kind: total
//   ignore_keywords: [subtotal, cash, change, table, tip]
//   name_rules:
//     - type: collapse_spaces
//     - type: title
//     - type: lookup
//       lookup_table:
//         "Cappucino": "Cappuccino"
//
// When the profiles directory holds no files, the built-in default profile
// is used for every receipt.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// PROFILE CONSTANTS
// =============================================================================

// Item extraction strategies.
const (
	// StrategyTokens splits a line on whitespace and reads the last two
	// tokens as quantity and price.
	StrategyTokens = "tokens"

	// StrategyPattern matches each line against a regular expression that
	// tolerates currency symbols, comma decimals and "2x" quantities.
	StrategyPattern = "pattern"
)

// Price kinds.
const (
	// PriceUnit means the amount on an item line is the price of one unit.
	PriceUnit = "unit"

	// PriceTotal means the amount on an item line is the row total.
	PriceTotal = "total"
)

// DefaultProfileName is the name of the built-in profile.
const DefaultProfileName = "default"

// DefaultIgnoreKeywords are the words that mark a line as not being an item.
var DefaultIgnoreKeywords = []string{
	"subtotal", "cash", "change", "receipt", "thank", "invoice", "city", "tel",
	"index", "cashier", "bill", "table", "tax",
}

// =============================================================================
// PROFILE STRUCTURE
// =============================================================================

// Profile holds the parsing rules for one family of receipts.
type Profile struct {
	// Name identifies the profile in logs and on the command line.
	Name string `yaml:"name"`

	// FileMatchingPatterns is a list of glob patterns matched against the
	// base name of the input file. If any matches, this profile is used.
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Strategy is the item extraction strategy: "tokens" or "pattern".
	// Default: "tokens"
	Strategy string `yaml:"strategy"`

	// PriceKind says whether the amount on an item line is the unit price
	// or the line total: "unit" or "total".
	// Default: "unit"
	PriceKind string `yaml:"price_kind"`

	// IgnoreKeywords are matched case-insensitively as substrings.
	// A line containing any of them is never read as an item.
	// Default: DefaultIgnoreKeywords
	IgnoreKeywords []string `yaml:"ignore_keywords"`

	// NameRules are applied to each item name, in order.
	NameRules []NameRule `yaml:"name_rules"`
}

// NameRule is one normalization action applied to item names.
type NameRule struct {
	// Type is the action to apply.
	// Supported types:
	//   - "trim"            : Remove leading and trailing whitespace
	//   - "collapse_spaces" : Replace runs of whitespace with one space
	//   - "uppercase"       : Convert to uppercase
	//   - "lowercase"       : Convert to lowercase
	//   - "title"           : Capitalize the first letter of each word
	//   - "replace"         : Replace Find with Value
	//   - "regex_replace"   : Replace matches of the Find pattern with Value
	//   - "strip_chars"     : Remove every character listed in Value
	//   - "lookup"          : Replace the whole name using LookupTable
	Type string `yaml:"type"`

	// Value is the parameter for the action.
	Value string `yaml:"value,omitempty"`

	// Find is used by "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable maps a recognized name to its canonical spelling.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// knownRuleTypes lists the NameRule types the parser understands.
var knownRuleTypes = map[string]bool{
	"trim":            true,
	"collapse_spaces": true,
	"uppercase":       true,
	"lowercase":       true,
	"title":           true,
	"replace":         true,
	"regex_replace":   true,
	"strip_chars":     true,
	"lookup":          true,
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() *Profile {
	p := &Profile{Name: DefaultProfileName}
	applyProfileDefaults(p)
	return p
}

// =============================================================================
// PROFILE LOADING FUNCTIONS
// =============================================================================

// LoadProfiles loads all parsing profiles from a directory.
//
// PARAMETERS:
//   - profilesDir: The directory containing profile YAML files.
//
// RETURNS:
//   - A map of profiles keyed by profile name. It always contains the
//     "default" profile; a file named "default" overrides the built-in one.
//   - An error if any file cannot be parsed or is invalid.
func LoadProfiles(profilesDir string) (map[string]*Profile, error) {
	profiles := map[string]*Profile{
		DefaultProfileName: DefaultProfile(),
	}

	if profilesDir == "" {
		return profiles, nil
	}
	if _, err := os.Stat(profilesDir); os.IsNotExist(err) {
		return profiles, nil
	}

	// Find all YAML files in the profiles directory.
	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	// Also check for .yml extension.
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		profile, err := loadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles[profile.Name] = profile
	}

	return profiles, nil
}

// loadProfile loads a single profile file.
func loadProfile(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	// If no name is specified, use the file name.
	if profile.Name == "" {
		profile.Name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	applyProfileDefaults(&profile)

	if err := ValidateProfile(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// applyProfileDefaults sets default values for a profile.
func applyProfileDefaults(p *Profile) {
	if p.Strategy == "" {
		p.Strategy = StrategyTokens
	}
	if p.PriceKind == "" {
		p.PriceKind = PriceUnit
	}
	if p.IgnoreKeywords == nil {
		p.IgnoreKeywords = append([]string(nil), DefaultIgnoreKeywords...)
	}
	for i, kw := range p.IgnoreKeywords {
		p.IgnoreKeywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
}

// ValidateProfile checks a profile for unknown values and bad patterns.
func ValidateProfile(p *Profile) error {
	switch p.Strategy {
	case StrategyTokens, StrategyPattern:
	default:
		return fmt.Errorf("profile %s: unknown strategy %q", p.Name, p.Strategy)
	}

	switch p.PriceKind {
	case PriceUnit, PriceTotal:
	default:
		return fmt.Errorf("profile %s: unknown price kind %q", p.Name, p.PriceKind)
	}

	for _, pattern := range p.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("profile %s: invalid file pattern %q: %w", p.Name, pattern, err)
		}
	}

	for i, rule := range p.NameRules {
		if !knownRuleTypes[rule.Type] {
			return fmt.Errorf("profile %s: name rule %d: unknown type %q", p.Name, i+1, rule.Type)
		}
		if rule.Type == "regex_replace" && rule.Find == "" {
			return fmt.Errorf("profile %s: name rule %d: regex_replace needs a find pattern", p.Name, i+1)
		}
	}

	return nil
}

// =============================================================================
// PROFILE MATCHING
// =============================================================================

// MatchProfile finds the profile that matches the given file.
//
// Profiles are tried in name order so that the choice is stable when more
// than one matches. The default profile is returned when nothing matches.
func MatchProfile(filePath string, profiles map[string]*Profile) *Profile {
	fileName := filepath.Base(filePath)

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		profile := profiles[name]
		for _, pattern := range profile.FileMatchingPatterns {
			matched, err := filepath.Match(pattern, fileName)
			if err != nil {
				// Invalid pattern, skip it.
				continue
			}
			if matched {
				return profile
			}
		}
	}

	if p, ok := profiles[DefaultProfileName]; ok {
		return p
	}
	return DefaultProfile()
}
