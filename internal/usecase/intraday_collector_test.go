package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/intraday"
	"StockCast/pkg/util"
)

type scriptedStream struct {
	mu         sync.Mutex
	trades     chan *models.Trade
	errs       chan error
	reads      int
	reconnects int
	connected  bool
}

func newScriptedStream() *scriptedStream {
	return &scriptedStream{trades: make(chan *models.Trade, 16), errs: make(chan error, 1)}
}

func (s *scriptedStream) Connect(context.Context) error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

func (s *scriptedStream) Subscribe(context.Context) error { return nil }

func (s *scriptedStream) Read(context.Context) (<-chan *models.Trade, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.trades, s.errs
}

func (s *scriptedStream) Reconnect(context.Context) error {
	s.mu.Lock()
	s.reconnects++
	s.mu.Unlock()
	return nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *scriptedStream) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.reconnects
}

type memoryArchive struct {
	mu     sync.Mutex
	trades []*models.Trade
	replay []*models.Trade
}

func (a *memoryArchive) StoreBatch(_ context.Context, trades []*models.Trade) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trades = append(a.trades, trades...)
	return nil
}

func (a *memoryArchive) Recent(_ context.Context, symbol string, _ time.Time, _ int) ([]*models.Trade, error) {
	return a.replay, nil
}

func (a *memoryArchive) stored() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.trades)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestIntradayCollectorFeedsTrackerAndArchive(t *testing.T) {
	open := time.Date(2024, 3, 13, 10, 0, 0, 0, est)
	tracker := intraday.NewTracker(util.NewSession(est, func() time.Time { return open }))
	stream := newScriptedStream()
	archive := &memoryArchive{
		replay: []*models.Trade{
			{Symbol: "AAPL", Timestamp: open.Add(-10 * time.Minute).UnixMilli(), Price: 171, Volume: 2},
			{Symbol: "AAPL", Timestamp: open.Add(-20 * time.Minute).UnixMilli(), Price: 170, Volume: 1},
		},
	}
	c := NewIntradayCollector(stream, tracker, archive, nil, CollectorConfig{
		Symbols:       []string{"AAPL"},
		BatchSize:     3,
		FlushInterval: time.Hour,
	}, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("expected connected")
	}
	for i, p := range []float64{172, 175, 169} {
		stream.trades <- &models.Trade{Symbol: "AAPL", Timestamp: open.Add(time.Duration(i) * time.Minute).UnixMilli(), Price: p, Volume: 10}
	}
	waitFor(t, "archive flush", func() bool { return archive.stored() == 3 })

	stream.errs <- errors.New("connection reset")
	waitFor(t, "reconnect", func() bool {
		reads, reconnects := stream.counts()
		return reads == 2 && reconnects == 1
	})

	stream.trades <- &models.Trade{Symbol: "AAPL", Timestamp: open.Add(5 * time.Minute).UnixMilli(), Price: 173, Volume: 5}
	waitFor(t, "tracker update", func() bool {
		bar := tracker.Bar("AAPL")
		return bar != nil && bar.Close == 173
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if archive.stored() != 4 {
		t.Fatalf("pending trade not flushed on shutdown: %d stored", archive.stored())
	}

	bar := tracker.Bar("AAPL")
	want := models.PriceBar{Date: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), Open: 170, High: 175, Low: 169, Close: 173, Volume: 38}
	if *bar != want {
		t.Fatalf("bar = %+v, want %+v", *bar, want)
	}
}
