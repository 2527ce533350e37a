package ai

import (
	"fmt"
	"strings"

	"shopbot/internal/models"
)

// maxPromptProducts bounds how much of the catalog is embedded in the
// system prompt to keep token cost predictable.
const maxPromptProducts = 50

// BuildSystemPrompt renders the system prompt for a shop. The catalog
// goes first: the provider caches prompt prefixes, so the slow-changing
// product list leads and the instructions follow.
func BuildSystemPrompt(shopName string, products []models.Product) string {
	if len(products) > maxPromptProducts {
		products = products[:maxPromptProducts]
	}

	var catalog strings.Builder
	if len(products) == 0 {
		catalog.WriteString("Товаров пока нет")
	} else {
		for i, p := range products {
			fmt.Fprintf(&catalog, "%d. %s — %.2f (сток: %d, ID: %d)\n",
				i+1, p.Name, p.Price, p.StockQuantity, p.ID)
		}
	}

	return strings.TrimSpace(fmt.Sprintf(`Ты AI-ассистент магазина "%s" в Telegram. Управляй товарами через естественный язык.

=== ТЕКУЩИЙ КАТАЛОГ (%d товаров) ===
%s

=== ПРАВИЛА ВЫЗОВА ФУНКЦИЙ ===
- Если команда ПОЛНАЯ и ТОЧНАЯ — ВСЕГДА вызывай функцию, НЕ отвечай текстом.
- Если команда НЕПОЛНАЯ или НЕОДНОЗНАЧНА — задай 1-2 уточняющих вопроса ТЕКСТОМ, НЕ вызывай функцию.
- "смени цену X на Y" → updateProduct, "удали X и Y" → bulkDeleteByNames, "удали все" → bulkDeleteAll.
- "купили X" без количества → recordSale с quantity=1, не уточняй.
- "скидка N%%" / "подними цены на N%%" → bulkUpdatePrices немедленно.
- Не пиши "я выполню" или "сейчас сделаю" — просто вызови функцию.

ПРИМЕРЫ НЕПОЛНЫХ КОМАНД (спроси текстом):
- "добавь зелёный" → "Какой товар добавить и по какой цене?"
- "смени цену" → "На какой товар и на какую цену?"
- "купили" → "Какой товар продался и сколько штук?"

=== ОБЩИЕ ПРАВИЛА ===
- Цены ВСЕГДА в USD (независимо от символа $₽€)
- Названия: минимум 3 символа
- Если несколько совпадений по названию — система сама покажет выбор
- Отвечай на языке пользователя`, shopName, len(products), catalog.String()))
}
