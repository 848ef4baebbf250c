package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/pkg/sqlite"
)

var sqliteForecastSchema = []string{
	`CREATE TABLE IF NOT EXISTS forecasts (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id        TEXT    NOT NULL,
		symbol          TEXT    NOT NULL,
		as_of_date      TEXT    NOT NULL,
		generated_at    INTEGER NOT NULL,
		session         TEXT    NOT NULL,
		last_close      REAL    NOT NULL,
		predicted_close REAL    NOT NULL,
		percent_change  REAL    NOT NULL,
		sentiment       TEXT    NOT NULL,
		recommendation  TEXT    NOT NULL,
		confidence      REAL    NOT NULL,
		stop_loss_pct   REAL    NOT NULL,
		take_profit_pct REAL    NOT NULL,
		rank            INTEGER NOT NULL,
		is_synthetic    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forecasts_symbol_time ON forecasts(symbol, generated_at DESC)`,
}

// SQLiteForecastStore keeps forecast history in the embedded database.
type SQLiteForecastStore struct {
	client *sqlite.Client
}

var _ repository.ForecastStore = (*SQLiteForecastStore)(nil)

// NewSQLiteForecastStore creates the forecasts table when missing.
func NewSQLiteForecastStore(ctx context.Context, client *sqlite.Client) (*SQLiteForecastStore, error) {
	if err := client.InitSchema(ctx, sqliteForecastSchema); err != nil {
		return nil, err
	}
	return &SQLiteForecastStore{client: client}, nil
}

func (s *SQLiteForecastStore) Save(ctx context.Context, cycleID string, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO forecasts (
		cycle_id, symbol, as_of_date, generated_at, session, last_close, predicted_close, percent_change,
		sentiment, recommendation, confidence, stop_loss_pct, take_profit_pct, rank, is_synthetic
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		synthetic := 0
		if r.IsSynthetic {
			synthetic = 1
		}
		if _, err := stmt.ExecContext(ctx,
			cycleID,
			strings.ToUpper(r.Symbol),
			r.AsOfDate.Format(models.DateLayout),
			r.GeneratedAt.UnixNano(),
			r.Session,
			r.LastClose,
			r.PredictedClose,
			r.PercentChange,
			string(r.Sentiment),
			string(r.Recommendation),
			r.Confidence,
			r.StopLossPct,
			r.TakeProfitPct,
			r.Rank,
			synthetic,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s: %w", r.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// History returns the newest records for symbol first.
func (s *SQLiteForecastStore) History(ctx context.Context, symbol string, limit int) ([]models.ForecastRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.client.DB().QueryContext(ctx, `SELECT
		symbol, as_of_date, generated_at, session, last_close, predicted_close, percent_change,
		sentiment, recommendation, confidence, stop_loss_pct, take_profit_pct, rank, is_synthetic
		FROM forecasts WHERE symbol = ? ORDER BY generated_at DESC, id DESC LIMIT ?`,
		strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.ForecastRecord
	for rows.Next() {
		var (
			r              models.ForecastRecord
			asOf           string
			generated      int64
			synthetic      int64
			sentiment, rec string
		)
		if err := rows.Scan(&r.Symbol, &asOf, &generated, &r.Session, &r.LastClose, &r.PredictedClose,
			&r.PercentChange, &sentiment, &rec, &r.Confidence, &r.StopLossPct, &r.TakeProfitPct,
			&r.Rank, &synthetic); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		day, err := time.Parse(models.DateLayout, asOf)
		if err != nil {
			return nil, fmt.Errorf("decode as_of_date: %w", err)
		}
		r.AsOfDate = day
		r.GeneratedAt = time.Unix(0, generated).UTC()
		r.Sentiment = models.Sentiment(sentiment)
		r.Recommendation = models.Recommendation(rec)
		r.IsSynthetic = synthetic != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteForecastStore) Close() error {
	return s.client.Close()
}
