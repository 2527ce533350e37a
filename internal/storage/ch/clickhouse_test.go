package ch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"shopbot/internal/models"
)

// runMigrations manually creates the ClickHouse schema for tests
func runMigrations(ctx context.Context, db *ClickHouseDB) error {
	_ = db.conn.Exec(ctx, "DROP TABLE IF EXISTS ai_usage")

	return db.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ai_usage (
			command_id String,
			chat_id Int64,
			shop_id Int64,
			operation String,
			prompt_tokens Int32,
			completion_tokens Int32,
			cache_hit_tokens Int32,
			cache_miss_tokens Int32,
			cost_usd Float64,
			latency_ms Int64,
			finish_reason String,
			success Bool,
			created_at DateTime
		) ENGINE = MergeTree()
		ORDER BY (shop_id, created_at)
	`)
}

// setupTestDB creates a test ClickHouse instance using testcontainers
func setupTestDB(t *testing.T) (*ClickHouseDB, func()) {
	ctx := context.Background()

	// Start ClickHouse container
	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")

	// Get connection details
	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	// Create database connection
	db, err := NewClickHouseDB(host, port.Int(), "default", "default", "", false)
	require.NoError(t, err, "Failed to connect to ClickHouse")

	// Run migrations manually (goose doesn't work well with ClickHouse)
	err = runMigrations(ctx, db)
	require.NoError(t, err, "Failed to run migrations")

	// Cleanup function
	cleanup := func() {
		db.Close()
		clickhouseContainer.Terminate(ctx)
	}

	return db, cleanup
}

func testRecord(shopID int64, op string, promptTokens int, cost float64, createdAt time.Time) models.UsageRecord {
	return models.UsageRecord{
		CommandID:        "cmd-" + createdAt.Format("20060102150405"),
		ChatID:           123,
		ShopID:           shopID,
		Operation:        op,
		PromptTokens:     promptTokens,
		CompletionTokens: 50,
		CacheHitTokens:   0,
		CacheMissTokens:  promptTokens,
		CostUSD:          cost,
		LatencyMs:        900,
		FinishReason:     "tool_calls",
		Success:          true,
		CreatedAt:        createdAt,
	}
}

// TestClickHouseDB_RecordUsage tests usage record insertion
func TestClickHouseDB_RecordUsage(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	createdAt := time.Now().UTC().Truncate(time.Second)
	err := db.RecordUsage(ctx, testRecord(1, "addProduct", 1200, 0.0006, createdAt))
	require.NoError(t, err)

	records, err := db.GetLastUsage(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "addProduct", records[0].Operation)
	assert.Equal(t, 1200, records[0].PromptTokens)
	assert.Equal(t, 50, records[0].CompletionTokens)
	assert.True(t, records[0].Success)
	assert.WithinDuration(t, createdAt, records[0].CreatedAt, time.Second)
}

// TestClickHouseDB_GetUsageSummary tests the aggregation query
func TestClickHouseDB_GetUsageSummary(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Records inside the window for shop 1
	require.NoError(t, db.RecordUsage(ctx, testRecord(1, "addProduct", 1000, 0.001, base)))
	require.NoError(t, db.RecordUsage(ctx, testRecord(1, "deleteProduct", 2000, 0.002, base.Add(time.Hour))))
	// Outside the window
	require.NoError(t, db.RecordUsage(ctx, testRecord(1, "listProducts", 3000, 0.003, base.AddDate(0, -2, 0))))
	// Different shop
	require.NoError(t, db.RecordUsage(ctx, testRecord(2, "addProduct", 4000, 0.004, base)))

	summary, err := db.GetUsageSummary(ctx, 1, base.AddDate(0, 0, -30))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), summary.Commands)
	assert.Equal(t, uint64(1000+50+2000+50), summary.TotalTokens)
	assert.InDelta(t, 0.003, summary.TotalCostUSD, 0.0001)
}

// TestClickHouseDB_GetLastUsage tests ordering and limiting
func TestClickHouseDB_GetLastUsage(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, db.RecordUsage(ctx, testRecord(1, "listProducts", 100, 0.0001, base.AddDate(0, 0, i))))
	}

	records, err := db.GetLastUsage(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	// Most recent first
	for i := 0; i < len(records)-1; i++ {
		assert.True(t, records[i].CreatedAt.After(records[i+1].CreatedAt) || records[i].CreatedAt.Equal(records[i+1].CreatedAt))
	}

	records, err = db.GetLastUsage(ctx, 1, 100)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

// TestClickHouseDB_ConcurrentInserts tests concurrent access
func TestClickHouseDB_ConcurrentInserts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	numGoroutines := 10
	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(idx int) {
			createdAt := time.Now().UTC().Add(time.Duration(idx) * time.Minute)
			err := db.RecordUsage(ctx, testRecord(1, "listProducts", 100, 0.0001, createdAt))
			assert.NoError(t, err)
			done <- true
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	records, err := db.GetLastUsage(ctx, 1, 100)
	require.NoError(t, err)
	assert.Len(t, records, numGoroutines)
}

// TestClickHouseDB_Close tests connection closing
func TestClickHouseDB_Close(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.Close()
	assert.NoError(t, err)

	// Second close should not panic
	err = db.Close()
	assert.NoError(t, err)
}
