package ai

import (
	"regexp"
	"sort"
	"strings"

	"shopbot/internal/models"
)

// MatchType describes how a fuzzy match was established.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchSubstring MatchType = "substring"
	MatchPartial   MatchType = "partial"
	MatchFuzzy     MatchType = "fuzzy"
)

// Match is one scored candidate from FuzzySearch.
type Match struct {
	Product models.Product
	Score   float64
	Type    MatchType
}

// defaultMatchThreshold is what the execution handlers use when resolving
// a product name from an AI tool call.
const defaultMatchThreshold = 0.6

// LevenshteinDistance returns the case-insensitive edit distance between
// two strings, counted in runes.
func LevenshteinDistance(a, b string) int {
	s1 := []rune(strings.ToLower(a))
	s2 := []rune(strings.ToLower(b))

	m, n := len(s1), len(s2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			if s1[i-1] == s2[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+1))
			}
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// SimilarityScore converts edit distance to a score in [0, 1] where 1
// means identical.
func SimilarityScore(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(LevenshteinDistance(a, b))/float64(maxLen)
}

// FuzzySearch scores each product name against the query and returns the
// matches at or above threshold, sorted by score descending. Exact
// case-insensitive equality scores 1.0, a candidate containing the query
// 0.9, the query containing a candidate 0.85; everything else falls
// through to the Levenshtein-derived score. Equal scores keep input order.
func FuzzySearch(query string, products []models.Product, threshold float64) []Match {
	if query == "" || len(products) == 0 {
		return nil
	}

	queryLower := strings.ToLower(query)

	var matches []Match
	for _, product := range products {
		nameLower := strings.ToLower(product.Name)

		var match Match
		switch {
		case nameLower == queryLower:
			match = Match{Product: product, Score: 1.0, Type: MatchExact}
		case strings.Contains(nameLower, queryLower):
			match = Match{Product: product, Score: 0.9, Type: MatchSubstring}
		case strings.Contains(queryLower, nameLower):
			match = Match{Product: product, Score: 0.85, Type: MatchPartial}
		default:
			match = Match{Product: product, Score: SimilarityScore(query, product.Name), Type: MatchFuzzy}
		}

		if match.Score >= threshold {
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

var (
	deleteVerbRe = regexp.MustCompile(`(?i)^(удалить|удали|delete|убери|remove)\s+`)
	// \b does not work for Cyrillic in RE2, so word edges are spelled out.
	productWordRe = regexp.MustCompile(`(?i)(^|\s)(товары|товар|products|product)(\s|$)`)
	nameSplitRe   = regexp.MustCompile(`[,;\n]|\s+и\s+|\s+and\s+`)
)

// ExtractProductNames splits a bulk command like "удали iPhone, Samsung и
// Xiaomi" into individual product names. Used as a fallback when the
// model hands back one comma-joined string instead of an array.
func ExtractProductNames(text string) []string {
	if text == "" {
		return nil
	}

	cleaned := deleteVerbRe.ReplaceAllString(text, "")
	cleaned = productWordRe.ReplaceAllString(cleaned, "$1")
	cleaned = strings.TrimSpace(cleaned)

	var names []string
	for _, part := range nameSplitRe.Split(cleaned, -1) {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
