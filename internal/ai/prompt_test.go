package ai

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"shopbot/internal/models"
)

func TestBuildSystemPrompt(t *testing.T) {
	catalog := []models.Product{
		{ID: 1, Name: "iPhone 15", Price: 999, StockQuantity: 5},
		{ID: 2, Name: "Beanie", Price: 15, StockQuantity: 50},
	}

	prompt := BuildSystemPrompt("My Shop", catalog)

	assert.Contains(t, prompt, "My Shop")
	assert.Contains(t, prompt, "iPhone 15")
	assert.Contains(t, prompt, "Beanie")
	assert.Contains(t, prompt, "(2 товаров)")

	// The catalog must precede the instructions so the slow-changing
	// prefix stays cacheable on the provider side
	catalogPos := strings.Index(prompt, "iPhone 15")
	rulesPos := strings.Index(prompt, "ПРАВИЛА ВЫЗОВА ФУНКЦИЙ")
	assert.Less(t, catalogPos, rulesPos)
}

func TestBuildSystemPrompt_EmptyCatalog(t *testing.T) {
	prompt := BuildSystemPrompt("My Shop", nil)
	assert.Contains(t, prompt, "Товаров пока нет")
}

func TestBuildSystemPrompt_CapsCatalog(t *testing.T) {
	var catalog []models.Product
	for i := 0; i < 80; i++ {
		catalog = append(catalog, models.Product{ID: int64(i + 1), Name: fmt.Sprintf("Product %d", i), Price: 10})
	}

	prompt := BuildSystemPrompt("My Shop", catalog)

	assert.Contains(t, prompt, "Product 49")
	assert.NotContains(t, prompt, "Product 50\n")
	assert.Contains(t, prompt, "(50 товаров)")
}
