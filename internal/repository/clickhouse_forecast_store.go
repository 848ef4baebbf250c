package repository

import (
	"context"
	"fmt"
	"strings"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/pkg/clickhouse"
)

// ClickHouseForecastStore appends forecast records to a MergeTree table.
type ClickHouseForecastStore struct {
	client *clickhouse.Client
	table  string
}

var _ repository.ForecastStore = (*ClickHouseForecastStore)(nil)

func clickhouseForecastSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			cycle_id        String,
			symbol          LowCardinality(String),
			as_of_date      Date,
			generated_at    DateTime64(3, 'UTC'),
			session         LowCardinality(String),
			last_close      Float64,
			predicted_close Float64,
			percent_change  Float64,
			sentiment       LowCardinality(String),
			recommendation  LowCardinality(String),
			confidence      Float64,
			stop_loss_pct   Float64,
			take_profit_pct Float64,
			rank            UInt16,
			is_synthetic    UInt8
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(as_of_date)
		ORDER BY (symbol, generated_at)`, table),
	}
}

// NewClickHouseForecastStore creates the table when missing.
func NewClickHouseForecastStore(ctx context.Context, client *clickhouse.Client, table string) (*ClickHouseForecastStore, error) {
	if table == "" {
		table = "forecasts"
	}
	if err := client.InitSchema(ctx, clickhouseForecastSchema(table)); err != nil {
		return nil, err
	}
	return &ClickHouseForecastStore{client: client, table: table}, nil
}

func (s *ClickHouseForecastStore) Save(ctx context.Context, cycleID string, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	// clickhouse-go batches rows prepared inside one transaction into a single insert
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (
		cycle_id, symbol, as_of_date, generated_at, session, last_close, predicted_close, percent_change,
		sentiment, recommendation, confidence, stop_loss_pct, take_profit_pct, rank, is_synthetic)`, s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var synthetic uint8
		if r.IsSynthetic {
			synthetic = 1
		}
		if _, err := stmt.ExecContext(ctx,
			cycleID,
			strings.ToUpper(r.Symbol),
			r.AsOfDate,
			r.GeneratedAt.UTC(),
			r.Session,
			r.LastClose,
			r.PredictedClose,
			r.PercentChange,
			string(r.Sentiment),
			string(r.Recommendation),
			r.Confidence,
			r.StopLossPct,
			r.TakeProfitPct,
			uint16(r.Rank),
			synthetic,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append %s: %w", r.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseForecastStore) History(ctx context.Context, symbol string, limit int) ([]models.ForecastRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	q := fmt.Sprintf(`SELECT
		symbol, as_of_date, generated_at, session, last_close, predicted_close, percent_change,
		sentiment, recommendation, confidence, stop_loss_pct, take_profit_pct, rank, is_synthetic
		FROM %s WHERE symbol = ? ORDER BY generated_at DESC LIMIT ?`, s.table)
	rows, err := s.client.DB().QueryContext(ctx, q, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.ForecastRecord
	for rows.Next() {
		var (
			r              models.ForecastRecord
			sentiment, rec string
			rank           uint16
			synthetic      uint8
		)
		if err := rows.Scan(&r.Symbol, &r.AsOfDate, &r.GeneratedAt, &r.Session, &r.LastClose, &r.PredictedClose,
			&r.PercentChange, &sentiment, &rec, &r.Confidence, &r.StopLossPct, &r.TakeProfitPct,
			&rank, &synthetic); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		r.Sentiment = models.Sentiment(sentiment)
		r.Recommendation = models.Recommendation(rec)
		r.Rank = int(rank)
		r.IsSynthetic = synthetic != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close is a no-op; the client is owned by the caller.
func (s *ClickHouseForecastStore) Close() error { return nil }
