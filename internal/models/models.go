package models

import "time"

// Product is a shop catalog item. Products are owned by the commerce
// backend; the bot fetches them fresh before every AI command and never
// persists them locally.
type Product struct {
	ID            int64   `json:"id"`
	ShopID        int64   `json:"shopId"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stockQuantity"`
}

// UsageRecord captures the cost and outcome of one AI command.
type UsageRecord struct {
	CommandID        string
	ChatID           int64
	ShopID           int64
	Operation        string
	PromptTokens     int
	CompletionTokens int
	CacheHitTokens   int
	CacheMissTokens  int
	CostUSD          float64
	LatencyMs        int64
	FinishReason     string
	Success          bool
	CreatedAt        time.Time
}

// UsageSummary aggregates usage records for a shop over a time period.
type UsageSummary struct {
	Commands     uint64
	TotalTokens  uint64
	TotalCostUSD float64
}
