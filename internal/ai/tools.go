package ai

import (
	openai "github.com/sashabaranov/go-openai"
)

// Operation is the closed set of catalog mutations the model is allowed
// to request. The tool definitions below are the sole authorization
// boundary: an operation absent from this list cannot be invoked no
// matter what the model returns.
type Operation string

const (
	OpAddProduct        Operation = "addProduct"
	OpBulkAddProducts   Operation = "bulkAddProducts"
	OpDeleteProduct     Operation = "deleteProduct"
	OpListProducts      Operation = "listProducts"
	OpSearchProduct     Operation = "searchProduct"
	OpUpdateProduct     Operation = "updateProduct"
	OpBulkDeleteAll     Operation = "bulkDeleteAll"
	OpBulkDeleteByNames Operation = "bulkDeleteByNames"
	OpRecordSale        Operation = "recordSale"
	OpGetProductInfo    Operation = "getProductInfo"
	OpBulkUpdatePrices  Operation = "bulkUpdatePrices"
)

// ParseOperation maps a function name from an LLM tool call onto the
// closed operation set.
func ParseOperation(name string) (Operation, bool) {
	switch op := Operation(name); op {
	case OpAddProduct, OpBulkAddProducts, OpDeleteProduct, OpListProducts,
		OpSearchProduct, OpUpdateProduct, OpBulkDeleteAll,
		OpBulkDeleteByNames, OpRecordSale, OpGetProductInfo,
		OpBulkUpdatePrices:
		return op, true
	}
	return "", false
}

// Tool call argument payloads. Field tags follow the JSON the model is
// instructed to produce.

type AddProductArgs struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type BulkAddProductsArgs struct {
	Products []AddProductArgs `json:"products"`
}

type DeleteProductArgs struct {
	ProductName string `json:"productName"`
}

type SearchProductArgs struct {
	Query string `json:"query"`
}

type ProductUpdates struct {
	Name          *string  `json:"name,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	StockQuantity *int     `json:"stock_quantity,omitempty"`
}

type UpdateProductArgs struct {
	ProductName string         `json:"productName"`
	Updates     ProductUpdates `json:"updates"`
}

type BulkDeleteByNamesArgs struct {
	ProductNames []string `json:"productNames"`
}

type RecordSaleArgs struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

type GetProductInfoArgs struct {
	ProductName string `json:"productName"`
}

type BulkUpdatePricesArgs struct {
	Percentage float64 `json:"percentage"`
	Operation  string  `json:"operation"` // "increase" or "decrease"
}

// ToolDefinitions returns the function-calling contract handed to the
// model verbatim. Descriptions are bilingual because sellers command the
// bot in both Russian and English.
func ToolDefinitions() []openai.Tool {
	return []openai.Tool{
		functionTool(OpAddProduct,
			"Добавить новый товар в магазин. Use this when user wants to add/create a new product.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "Название товара (минимум 3 символа). Product name in any language.",
					},
					"price": map[string]any{
						"type":        "number",
						"description": "Цена товара в USD (только положительные числа). Product price in USD, must be positive.",
					},
					"stock": map[string]any{
						"type":        "number",
						"description": "Количество на складе (опционально, по умолчанию 0). Stock quantity, optional, defaults to 0.",
					},
				},
				"required":             []string{"name", "price", "stock"},
				"additionalProperties": false,
			}),
		functionTool(OpBulkAddProducts,
			"Добавить несколько товаров одновременно. ALWAYS use this when user wants to add 2+ products in one command. Extract all products and add them immediately.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"products": map[string]any{
						"type":        "array",
						"description": "Массив товаров для добавления. Array of products to add.",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":  map[string]any{"type": "string"},
								"price": map[string]any{"type": "number"},
								"stock": map[string]any{"type": "number"},
							},
							"required":             []string{"name", "price", "stock"},
							"additionalProperties": false,
						},
						"minItems": 2,
					},
				},
				"required":             []string{"products"},
				"additionalProperties": false,
			}),
		functionTool(OpDeleteProduct,
			"Удалить один товар по названию. Use this when user wants to delete a single product.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"productName": map[string]any{
						"type":        "string",
						"description": "Название товара для удаления. Exact or partial product name to delete.",
					},
				},
				"required":             []string{"productName"},
				"additionalProperties": false,
			}),
		functionTool(OpListProducts,
			"Показать список всех товаров магазина. Use this when user wants to see/list/show all products.",
			map[string]any{
				"type":                 "object",
				"properties":           map[string]any{},
				"required":             []string{},
				"additionalProperties": false,
			}),
		functionTool(OpSearchProduct,
			"Найти товар по названию (fuzzy search). Use this when user mentions a product name and wants to find it.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Поисковый запрос. Search query for product name.",
					},
				},
				"required":             []string{"query"},
				"additionalProperties": false,
			}),
		functionTool(OpUpdateProduct,
			"Обновить товар (цену, название или количество). ALWAYS call this function when user wants to change price, rename, or set stock. DO NOT respond with text, CALL the function.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"productName": map[string]any{
						"type":        "string",
						"description": "Текущее название товара для поиска. Current product name to find (exact or fuzzy match).",
					},
					"updates": map[string]any{
						"type":        "object",
						"description": "Объект с изменениями. Object with updates to apply.",
						"properties": map[string]any{
							"name":           map[string]any{"type": "string", "description": "New product name if renaming."},
							"price":          map[string]any{"type": "number", "description": "New price in USD if changing price."},
							"stock_quantity": map[string]any{"type": "number", "description": "New stock quantity if changing stock."},
						},
						"additionalProperties": false,
					},
				},
				"required":             []string{"productName", "updates"},
				"additionalProperties": false,
			}),
		functionTool(OpBulkDeleteAll,
			"Удалить ВСЕ товары из магазина. Use ONLY when user explicitly wants to delete ALL products.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"confirm": map[string]any{
						"type":        "boolean",
						"description": "Подтверждение удаления всех товаров. Must be true.",
					},
				},
				"required":             []string{"confirm"},
				"additionalProperties": false,
			}),
		functionTool(OpBulkDeleteByNames,
			"Удалить несколько товаров по названиям. ALWAYS call this function when user wants to delete 2+ specific products. DO NOT respond with text, CALL the function.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"productNames": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Массив названий товаров для удаления. Array of product names to delete (can be fuzzy matches).",
					},
				},
				"required":             []string{"productNames"},
				"additionalProperties": false,
			}),
		functionTool(OpRecordSale,
			"Записать продажу товара (уменьшить количество на складе). Use when user says \"sold X items\", \"купили X штук\", or just \"купили iPhone\" (default quantity=1).",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"productName": map[string]any{
						"type":        "string",
						"description": "Название товара. Product name (exact or fuzzy match).",
					},
					"quantity": map[string]any{
						"type":        "number",
						"description": "Количество проданных единиц (по умолчанию 1). Number of items sold, defaults to 1 if not specified.",
					},
				},
				"required":             []string{"productName", "quantity"},
				"additionalProperties": false,
			}),
		functionTool(OpGetProductInfo,
			"Получить информацию о товаре (цена, количество на складе). Use when user asks \"what's the price?\" or \"how many left?\".",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"productName": map[string]any{
						"type":        "string",
						"description": "Название товара. Product name to query.",
					},
				},
				"required":             []string{"productName"},
				"additionalProperties": false,
			}),
		functionTool(OpBulkUpdatePrices,
			"Массовое изменение цен ВСЕХ товаров (скидка или повышение). Use when user says \"скидка 10%\", \"raise all prices 15%\". DO NOT respond with text - CALL this function immediately!",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"percentage": map[string]any{
						"type":        "number",
						"description": "Процент изменения (положительное число). Percentage to change, e.g. 10 means 10%.",
						"minimum":     0.1,
						"maximum":     100,
					},
					"operation": map[string]any{
						"type":        "string",
						"enum":        []string{"increase", "decrease"},
						"description": "Операция: increase (повысить цены) или decrease (снизить, скидка). Increase or decrease prices.",
					},
				},
				"required":             []string{"percentage", "operation"},
				"additionalProperties": false,
			}),
	}
}

func functionTool(op Operation, description string, parameters map[string]any) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        string(op),
			Description: description,
			Parameters:  parameters,
		},
	}
}
