package repository

import (
	"context"
	"errors"

	"StockCast/internal/domain/models"
)

var (
	// ErrUpstreamUnavailable covers network failures, malformed payloads and explicit error fields.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrRateLimited is returned when the upstream answers with a rate-limit notice.
	ErrRateLimited = errors.New("upstream rate limited")
)

// UpstreamSource fetches daily price history for a symbol.
type UpstreamSource interface {
	FetchDaily(ctx context.Context, symbol string) (*models.DailySeries, error)
}

// MirrorWriter persists a symbol's latest history in durable file formats.
type MirrorWriter interface {
	Write(symbol string, raw []byte, bars []models.PriceBar) error
	Remove(symbol string) error
}

// ForecastStore keeps the forecast records produced by each cycle.
type ForecastStore interface {
	Save(ctx context.Context, cycleID string, records []models.ForecastRecord) error
	History(ctx context.Context, symbol string, limit int) ([]models.ForecastRecord, error)
	Close() error
}

// ForecastPublisher pushes ranked records to downstream consumers.
type ForecastPublisher interface {
	PublishBatch(ctx context.Context, cycleID string, records []models.ForecastRecord) error
	Close() error
}

// MarketStream delivers live trades for the intraday session bar.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TradeArchive stores raw live trades for later analysis.
type TradeArchive interface {
	StoreBatch(ctx context.Context, trades []*models.Trade) error
}

type Metrics interface {
	RecordResolve(outcome string)
	RecordUpstream(result string)
	RecordTraining(symbol string, instances int, seconds float64)
	RecordForecast(symbol string, percentChange float64)
	RecordCycle(resolved, synthetic, missing int, seconds float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordResolve(string) {}
func (NopMetrics) RecordUpstream(string) {}
func (NopMetrics) RecordTraining(string, int, float64) {}
func (NopMetrics) RecordForecast(string, float64) {}
func (NopMetrics) RecordCycle(int, int, int, float64) {}
func (NopMetrics) RecordError(string) {}
func (NopMetrics) RecordLatency(string, float64) {}

// NopForecastStore is used when no history backend is configured.
type NopForecastStore struct{}

func (NopForecastStore) Save(context.Context, string, []models.ForecastRecord) error { return nil }

func (NopForecastStore) History(context.Context, string, int) ([]models.ForecastRecord, error) {
	return nil, nil
}

func (NopForecastStore) Close() error { return nil }

// NopPublisher is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishBatch(context.Context, string, []models.ForecastRecord) error { return nil }
func (NopPublisher) Close() error { return nil }

// NopTradeArchive drops trades when no archive is configured.
type NopTradeArchive struct{}

func (NopTradeArchive) StoreBatch(context.Context, []*models.Trade) error { return nil }
