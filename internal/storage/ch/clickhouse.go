package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"shopbot/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ClickHouseDB struct {
	conn clickhouse.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	// Tables are managed via migrations (see migrations/ directory)
	// This method is kept for interface compatibility
	return nil
}

// RecordUsage inserts one AI command usage record
func (db *ClickHouseDB) RecordUsage(ctx context.Context, rec models.UsageRecord) error {
	err := db.conn.Exec(ctx, `
		INSERT INTO ai_usage (
			command_id, chat_id, shop_id, operation,
			prompt_tokens, completion_tokens, cache_hit_tokens, cache_miss_tokens,
			cost_usd, latency_ms, finish_reason, success, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CommandID, rec.ChatID, rec.ShopID, rec.Operation,
		rec.PromptTokens, rec.CompletionTokens, rec.CacheHitTokens, rec.CacheMissTokens,
		rec.CostUSD, rec.LatencyMs, rec.FinishReason, rec.Success, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// GetUsageSummary aggregates commands, tokens and cost for a shop since
// the given time
func (db *ClickHouseDB) GetUsageSummary(ctx context.Context, shopID int64, since time.Time) (models.UsageSummary, error) {
	row := db.conn.QueryRow(ctx, `
		SELECT
			count() AS commands,
			toUInt64(sum(prompt_tokens + completion_tokens)) AS total_tokens,
			toFloat64(sum(cost_usd)) AS total_cost
		FROM ai_usage
		WHERE shop_id = ? AND created_at >= ?`,
		shopID, since)

	var summary models.UsageSummary
	if err := row.Scan(&summary.Commands, &summary.TotalTokens, &summary.TotalCostUSD); err != nil {
		return models.UsageSummary{}, fmt.Errorf("failed to get usage summary: %w", err)
	}
	return summary, nil
}

// GetLastUsage returns the most recent N usage records for a shop
func (db *ClickHouseDB) GetLastUsage(ctx context.Context, shopID int64, limit int) ([]models.UsageRecord, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT
			command_id, chat_id, shop_id, operation,
			prompt_tokens, completion_tokens, cache_hit_tokens, cache_miss_tokens,
			cost_usd, latency_ms, finish_reason, success, created_at
		FROM ai_usage
		WHERE shop_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get last usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var (
			rec                                     models.UsageRecord
			prompt, completion, cacheHit, cacheMiss int32
		)
		if err := rows.Scan(
			&rec.CommandID, &rec.ChatID, &rec.ShopID, &rec.Operation,
			&prompt, &completion, &cacheHit, &cacheMiss,
			&rec.CostUSD, &rec.LatencyMs, &rec.FinishReason, &rec.Success, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		rec.PromptTokens = int(prompt)
		rec.CompletionTokens = int(completion)
		rec.CacheHitTokens = int(cacheHit)
		rec.CacheMissTokens = int(cacheMiss)
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
