package storage

import (
	"context"
	"time"

	"shopbot/internal/models"
)

// Storage defines the interface for AI usage analytics persistence.
// The product catalog itself lives in the commerce backend; the bot only
// stores per-command token usage and cost locally.
type Storage interface {
	// Usage operations
	RecordUsage(ctx context.Context, rec models.UsageRecord) error

	// GetUsageSummary aggregates commands, tokens and cost for a shop
	// since the given time.
	GetUsageSummary(ctx context.Context, shopID int64, since time.Time) (models.UsageSummary, error)

	// GetLastUsage returns the most recent N usage records for a shop,
	// newest first.
	GetLastUsage(ctx context.Context, shopID int64, limit int) ([]models.UsageRecord, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
