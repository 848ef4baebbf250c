package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
	"StockCast/internal/services/acquisition"
	"StockCast/internal/services/signal"
	"StockCast/pkg/util"
)

var est = time.FixedZone("EST", -5*3600)

type seriesUpstream struct {
	mu    sync.Mutex
	calls map[string]int
}

func (u *seriesUpstream) FetchDaily(ctx context.Context, sym string) (*models.DailySeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.mu.Lock()
	if u.calls == nil {
		u.calls = make(map[string]int)
	}
	u.calls[sym]++
	u.mu.Unlock()
	bars := acquisition.GenerateSynthetic(sym, 90, 3, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	raw, err := models.EncodeDailyPayload(sym, bars, "Daily Prices")
	if err != nil {
		return nil, err
	}
	return &models.DailySeries{Symbol: sym, Bars: bars, Raw: raw}, nil
}

type memoryStore struct {
	mu      sync.Mutex
	cycles  []string
	records []models.ForecastRecord
	err     error
}

func (s *memoryStore) Save(_ context.Context, cycleID string, records []models.ForecastRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.cycles = append(s.cycles, cycleID)
	s.records = append(s.records, records...)
	return nil
}

func (s *memoryStore) History(_ context.Context, symbol string, limit int) ([]models.ForecastRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ForecastRecord
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].Symbol == symbol {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *memoryStore) Close() error { return nil }

func newForecastService(t *testing.T, store *memoryStore) (*ForecastService, *acquisition.Cache) {
	t.Helper()
	saturday := time.Date(2024, 3, 16, 12, 0, 0, 0, est)
	session := util.NewSession(est, func() time.Time { return saturday })
	cache := acquisition.NewCache(acquisition.Config{BatchDelay: 0}, acquisition.Deps{
		Upstream: &seriesUpstream{},
		Session:  session,
	})
	var s *ForecastService
	if store == nil {
		s = NewForecastService(cache, signal.NewEngine(session), nil, nil, nil, nil)
	} else {
		s = NewForecastService(cache, signal.NewEngine(session), store, nil, nil, nil)
	}
	return s, cache
}

func TestForecastResolvesAndCaps(t *testing.T) {
	s, _ := newForecastService(t, nil)
	rec, err := s.Forecast(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if rec.Symbol != "AAPL" || rec.Session != models.SessionClosed || rec.Rank != 0 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if dev := math.Abs(rec.PredictedClose-rec.LastClose) / rec.LastClose; dev > 0.05+1e-9 {
		t.Fatalf("deviation %.4f exceeds closed-market cap", dev)
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", rec.Confidence)
	}
}

func TestForecastNoData(t *testing.T) {
	s, _ := newForecastService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Forecast(ctx, "MSFT"); !errors.Is(err, service.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := s.Outlook(ctx, "MSFT"); !errors.Is(err, service.ErrNoData) {
		t.Fatalf("expected ErrNoData from outlook, got %v", err)
	}
}

func TestTopRanksCachedSymbols(t *testing.T) {
	s, _ := newForecastService(t, nil)
	for _, sym := range []string{"AAPL", "MSFT", "NVDA"} {
		if _, err := s.Forecast(context.Background(), sym); err != nil {
			t.Fatalf("forecast %s: %v", sym, err)
		}
	}
	top, err := s.Top(context.Background(), 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].Rank != 1 || top[1].Rank != 2 {
		t.Fatalf("unexpected top %+v", top)
	}
	if math.Abs(top[0].PercentChange) < math.Abs(top[1].PercentChange) {
		t.Fatalf("top not ordered by magnitude")
	}
}

func TestOutlookIncludesDiagnostics(t *testing.T) {
	s, _ := newForecastService(t, nil)
	out, err := s.Outlook(context.Background(), "GOOGL")
	if err != nil {
		t.Fatalf("outlook: %v", err)
	}
	if out.Symbol != "GOOGL" || out.Model.State != "trained" || out.Model.Instances == 0 {
		t.Fatalf("unexpected outlook %+v", out)
	}
	if out.CurrentPrice <= 0 || out.TomorrowPrice <= 0 {
		t.Fatalf("missing projections %+v", out)
	}
}

func TestHistoryReadsStore(t *testing.T) {
	store := &memoryStore{}
	s, _ := newForecastService(t, store)
	_ = store.Save(context.Background(), "c1", []models.ForecastRecord{{Symbol: "AAPL", Rank: 2}, {Symbol: "MSFT", Rank: 1}})

	got, err := s.History(context.Background(), " aapl ", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 1 || got[0].Rank != 2 {
		t.Fatalf("unexpected history %+v", got)
	}
	empty, err := s.History(context.Background(), "NONE", 10)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v %v", empty, err)
	}
	if _, err := s.History(context.Background(), "  ", 10); !errors.Is(err, service.ErrNoData) {
		t.Fatalf("blank symbol: %v", err)
	}
}
