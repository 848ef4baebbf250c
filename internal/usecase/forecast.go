package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/domain/service"
	"StockCast/internal/services/acquisition"
	"StockCast/internal/services/signal"
	applogger "StockCast/pkg/logger"
)

// IntradaySource supplies the current session bar for a symbol, or nil.
type IntradaySource interface {
	Bar(symbol string) *models.PriceBar
}

type noIntraday struct{}

func (noIntraday) Bar(string) *models.PriceBar { return nil }

// ForecastService answers forecast queries from the acquisition cache.
type ForecastService struct {
	cache    *acquisition.Cache
	engine   *signal.Engine
	store    domrepo.ForecastStore
	intraday IntradaySource
	metrics  domrepo.Metrics
	logger   *applogger.Logger

	mu    sync.RWMutex
	ranks map[string]int
}

var _ service.ForecastQuery = (*ForecastService)(nil)

func NewForecastService(
	cache *acquisition.Cache,
	engine *signal.Engine,
	store domrepo.ForecastStore,
	intraday IntradaySource,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
) *ForecastService {
	if store == nil {
		store = domrepo.NopForecastStore{}
	}
	if intraday == nil {
		intraday = noIntraday{}
	}
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if lgr == nil {
		lgr = applogger.Nop()
	}
	return &ForecastService{
		cache:    cache,
		engine:   engine,
		store:    store,
		intraday: intraday,
		metrics:  metrics,
		logger:   lgr.With(applogger.String("component", "forecast")),
		ranks:    make(map[string]int),
	}
}

func (s *ForecastService) resolve(ctx context.Context, symbol string) (*acquisition.Entry, error) {
	res := s.cache.Resolve(ctx, symbol)
	if res.Kind == acquisition.Unavailable || res.Entry == nil {
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %s: %v", service.ErrNoData, symbol, res.Err)
		}
		return nil, fmt.Errorf("%w: %s", service.ErrNoData, symbol)
	}
	return res.Entry, nil
}

func (s *ForecastService) input(e *acquisition.Entry) signal.Input {
	return signal.Input{
		Symbol:    e.Symbol,
		History:   e.History,
		Intraday:  s.intraday.Bar(e.Symbol),
		Model:     e.Model,
		Synthetic: e.Synthetic,
	}
}

// Forecast decorates one symbol. Rank is the symbol's place in the last completed cycle, 0 if none.
func (s *ForecastService) Forecast(ctx context.Context, symbol string) (models.ForecastRecord, error) {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("forecast", time.Since(start).Seconds()) }()

	e, err := s.resolve(ctx, symbol)
	if err != nil {
		return models.ForecastRecord{}, err
	}
	rec, err := s.engine.Build(s.input(e))
	if err != nil {
		return models.ForecastRecord{}, fmt.Errorf("%w: %s: %v", service.ErrNoData, e.Symbol, err)
	}
	s.mu.RLock()
	rec.Rank = s.ranks[rec.Symbol]
	s.mu.RUnlock()
	s.metrics.RecordForecast(rec.Symbol, rec.PercentChange)
	return rec, nil
}

// Top ranks every cached symbol and returns the first limit records.
func (s *ForecastService) Top(ctx context.Context, limit int) ([]models.ForecastRecord, error) {
	records := s.Ranked(s.cache.Entries())
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Ranked builds and ranks records for entries. Entries that cannot be decorated are skipped.
func (s *ForecastService) Ranked(entries []*acquisition.Entry) []models.ForecastRecord {
	records := make([]models.ForecastRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := s.engine.Build(s.input(e))
		if err != nil {
			s.logger.Warn("Forecast skipped", applogger.String("symbol", e.Symbol), applogger.Error(err))
			continue
		}
		records = append(records, rec)
	}
	signal.Rank(records)
	return records
}

// remember keeps the ranks of a completed cycle for single-symbol queries.
func (s *ForecastService) remember(records []models.ForecastRecord) {
	ranks := make(map[string]int, len(records))
	for _, r := range records {
		ranks[r.Symbol] = r.Rank
	}
	s.mu.Lock()
	s.ranks = ranks
	s.mu.Unlock()
}

func (s *ForecastService) Outlook(ctx context.Context, symbol string) (models.Outlook, error) {
	e, err := s.resolve(ctx, symbol)
	if err != nil {
		return models.Outlook{}, err
	}
	out, err := s.engine.Outlook(s.input(e))
	if err != nil {
		return models.Outlook{}, fmt.Errorf("%w: %s: %v", service.ErrNoData, e.Symbol, err)
	}
	return out, nil
}

func (s *ForecastService) History(ctx context.Context, symbol string, limit int) ([]models.ForecastRecord, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return nil, fmt.Errorf("%w: empty symbol", service.ErrNoData)
	}
	records, err := s.store.History(ctx, sym, limit)
	if err != nil {
		s.metrics.RecordError("history")
		return nil, fmt.Errorf("forecast history: %w", err)
	}
	if records == nil {
		records = []models.ForecastRecord{}
	}
	return records, nil
}
