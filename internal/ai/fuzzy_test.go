package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopbot/internal/models"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"iphone", "iphone", 0},
		{"iPhone", "iphone", 0}, // case-insensitive
		{"мама", "рама", 1},     // runes, not bytes
		{"flaw", "lawn", 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b), "LevenshteinDistance(%q, %q)", tt.a, tt.b)
	}
}

func TestSimilarityScore(t *testing.T) {
	assert.Equal(t, 1.0, SimilarityScore("", ""))
	assert.Equal(t, 1.0, SimilarityScore("iPhone", "iphone"))
	assert.InDelta(t, 0.75, SimilarityScore("мама", "рама"), 0.001)
	assert.Equal(t, 0.0, SimilarityScore("abc", "xyz"))
}

func products(names ...string) []models.Product {
	ps := make([]models.Product, 0, len(names))
	for i, name := range names {
		ps = append(ps, models.Product{ID: int64(i + 1), Name: name, Price: float64(100 * (i + 1))})
	}
	return ps
}

func TestFuzzySearch_MatchTypes(t *testing.T) {
	catalog := products("iPhone 15", "Чехол iPhone", "Samsung Galaxy")

	t.Run("exact match scores 1.0", func(t *testing.T) {
		matches := FuzzySearch("iphone 15", catalog, 0.6)
		require.NotEmpty(t, matches)
		assert.Equal(t, "iPhone 15", matches[0].Product.Name)
		assert.Equal(t, 1.0, matches[0].Score)
		assert.Equal(t, MatchExact, matches[0].Type)
	})

	t.Run("substring match scores 0.9", func(t *testing.T) {
		matches := FuzzySearch("iphone", catalog, 0.6)
		require.Len(t, matches, 2)
		for _, m := range matches {
			assert.Equal(t, 0.9, m.Score)
			assert.Equal(t, MatchSubstring, m.Type)
		}
	})

	t.Run("partial match scores 0.85", func(t *testing.T) {
		matches := FuzzySearch("Samsung Galaxy S24 Ultra", catalog, 0.6)
		require.Len(t, matches, 1)
		assert.Equal(t, "Samsung Galaxy", matches[0].Product.Name)
		assert.Equal(t, 0.85, matches[0].Score)
		assert.Equal(t, MatchPartial, matches[0].Type)
	})

	t.Run("fuzzy match uses similarity score", func(t *testing.T) {
		matches := FuzzySearch("iPhane 15", catalog, 0.6)
		require.NotEmpty(t, matches)
		assert.Equal(t, "iPhone 15", matches[0].Product.Name)
		assert.Equal(t, MatchFuzzy, matches[0].Type)
		assert.Less(t, matches[0].Score, 0.9)
	})
}

func TestFuzzySearch_ThresholdAndOrder(t *testing.T) {
	catalog := products("iPhone 15", "iPhone 14", "Beanie")

	// Everything below threshold is dropped
	matches := FuzzySearch("iphone 15", catalog, 0.6)
	require.Len(t, matches, 2)

	// Sorted by score descending, equal scores keep input order
	assert.Equal(t, "iPhone 15", matches[0].Product.Name)
	assert.Equal(t, "iPhone 14", matches[1].Product.Name)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)

	// Raising the threshold narrows the result to the exact match
	matches = FuzzySearch("iphone 15", catalog, 0.95)
	require.Len(t, matches, 1)
	assert.Equal(t, "iPhone 15", matches[0].Product.Name)
}

func TestFuzzySearch_Empty(t *testing.T) {
	assert.Nil(t, FuzzySearch("", products("iPhone"), 0.6))
	assert.Nil(t, FuzzySearch("iphone", nil, 0.6))
	assert.Empty(t, FuzzySearch("zzzzzz", products("iPhone"), 0.6))
}

func TestExtractProductNames(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"удали iPhone, Samsung и Xiaomi", []string{"iPhone", "Samsung", "Xiaomi"}},
		{"delete iPhone and Samsung", []string{"iPhone", "Samsung"}},
		{"убери товары iPhone; Samsung", []string{"iPhone", "Samsung"}},
		{"iPhone, Samsung", []string{"iPhone", "Samsung"}},
		{"iPhone", []string{"iPhone"}},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractProductNames(tt.text), "ExtractProductNames(%q)", tt.text)
	}
}
