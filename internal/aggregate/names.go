package aggregate

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/ginjaninja78/receipt-scanner/internal/types"
)

// Canonicalize maps OCR spelling variants of an item name onto the most
// frequent spelling. Two names are variants when their case-insensitive
// Levenshtein distance is at most maxDistance and the shorter name is more
// than twice that distance long, so "Tea" and "Pie" stay apart.
//
// RETURNS:
//   - A map from every name in the table to its canonical name.
func (t *Table) Canonicalize(maxDistance int) map[string]string {
	counts := make(map[string]int)
	for _, item := range t.items {
		counts[item.Name]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	mapping := make(map[string]string, len(names))
	var canonical []string
	for _, name := range names {
		mapping[name] = name
		for _, c := range canonical {
			if similar(name, c, maxDistance) {
				mapping[name] = c
				break
			}
		}
		if mapping[name] == name {
			canonical = append(canonical, name)
		}
	}
	return mapping
}

// MergeSimilarNames returns a new Table whose rows carry canonical names.
func (t *Table) MergeSimilarNames(maxDistance int) *Table {
	if maxDistance <= 0 {
		return t
	}

	mapping := t.Canonicalize(maxDistance)
	items := make([]types.LineItem, len(t.items))
	for i, item := range t.items {
		item.Name = mapping[item.Name]
		items[i] = item
	}
	return NewTable(items)
}

func similar(a, b string, maxDistance int) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return true
	}
	d := fuzzy.LevenshteinDistance(la, lb)
	if d > maxDistance {
		return false
	}
	shorter := utf8.RuneCountInString(la)
	if n := utf8.RuneCountInString(lb); n < shorter {
		shorter = n
	}
	return shorter > 2*d
}
