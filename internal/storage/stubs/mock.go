package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"shopbot/internal/models"
)

// MockDB is an in-memory implementation of the Storage interface for
// testing and for running the bot without a ClickHouse instance.
type MockDB struct {
	mu      sync.RWMutex
	records []models.UsageRecord
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		records: make([]models.UsageRecord, 0),
	}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// RecordUsage stores one AI command usage record
func (m *MockDB) RecordUsage(ctx context.Context, rec models.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, rec)
	return nil
}

// GetUsageSummary aggregates commands, tokens and cost for a shop since
// the given time
func (m *MockDB) GetUsageSummary(ctx context.Context, shopID int64, since time.Time) (models.UsageSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var summary models.UsageSummary
	for _, rec := range m.records {
		if rec.ShopID != shopID || rec.CreatedAt.Before(since) {
			continue
		}
		summary.Commands++
		summary.TotalTokens += uint64(rec.PromptTokens + rec.CompletionTokens)
		summary.TotalCostUSD += rec.CostUSD
	}
	return summary, nil
}

// GetLastUsage returns the most recent N usage records for a shop
func (m *MockDB) GetLastUsage(ctx context.Context, shopID int64, limit int) ([]models.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []models.UsageRecord
	for _, rec := range m.records {
		if rec.ShopID == shopID {
			records = append(records, rec)
		}
	}

	// Sort by creation time descending
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
