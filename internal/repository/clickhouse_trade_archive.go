package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/pkg/clickhouse"
)

const tradeChunkSize = 2000

// ClickHouseTradeArchive stores live trades from the intraday stream.
type ClickHouseTradeArchive struct {
	client *clickhouse.Client
	table  string
	source string
}

var _ repository.TradeArchive = (*ClickHouseTradeArchive)(nil)

// NewClickHouseTradeArchive creates the trades table when missing.
func NewClickHouseTradeArchive(ctx context.Context, client *clickhouse.Client, table, source string) (*ClickHouseTradeArchive, error) {
	if table == "" {
		table = "intraday_trades"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts       DateTime64(3, 'UTC'),
		symbol   LowCardinality(String),
		price    Float64,
		volume   Float64,
		source   LowCardinality(String),
		event_id String
	) ENGINE = ReplacingMergeTree
	PARTITION BY toYYYYMMDD(ts)
	ORDER BY (symbol, ts, event_id)`, table)
	if err := client.InitSchema(ctx, []string{ddl}); err != nil {
		return nil, err
	}
	return &ClickHouseTradeArchive{client: client, table: table, source: source}, nil
}

// StoreBatch inserts trades with multi-row VALUES statements.
// Invalid trades are skipped; event_id makes replays idempotent after merges.
func (a *ClickHouseTradeArchive) StoreBatch(ctx context.Context, trades []*models.Trade) error {
	for start := 0; start < len(trades); start += tradeChunkSize {
		end := start + tradeChunkSize
		if end > len(trades) {
			end = len(trades)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, t := range trades[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp <= 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args,
				time.UnixMilli(t.Timestamp).UTC(),
				t.Symbol,
				t.Price,
				t.Volume,
				a.source,
				fmt.Sprintf("%s-%d", t.Symbol, t.Timestamp),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, source, event_id) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.client.DB().ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert trades: %w", err)
		}
	}
	return nil
}

// Recent returns the newest trades for symbol since from.
func (a *ClickHouseTradeArchive) Recent(ctx context.Context, symbol string, from time.Time, limit int) ([]*models.Trade, error) {
	q := fmt.Sprintf("SELECT symbol, ts, price, volume FROM %s WHERE symbol = ? AND ts >= ? ORDER BY ts DESC LIMIT ?", a.table)
	rows, err := a.client.DB().QueryContext(ctx, q, strings.ToUpper(symbol), from.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		var ts time.Time
		if err := rows.Scan(&t.Symbol, &ts, &t.Price, &t.Volume); err != nil {
			return nil, err
		}
		t.Timestamp = ts.UnixMilli()
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}
