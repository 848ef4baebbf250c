package usecase

import (
	"context"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/intraday"
	applogger "StockCast/pkg/logger"
)

// TradeReplayer is implemented by archives that can return today's trades after a restart.
type TradeReplayer interface {
	Recent(ctx context.Context, symbol string, from time.Time, limit int) ([]*models.Trade, error)
}

type CollectorConfig struct {
	Symbols       []string
	BatchSize     int
	FlushInterval time.Duration
	ReplayLimit   int
}

// IntradayCollector feeds live trades into the session bar tracker and the trade archive.
type IntradayCollector struct {
	stream  drepo.MarketStream
	tracker *intraday.Tracker
	archive drepo.TradeArchive
	metrics drepo.Metrics
	logger  *applogger.Logger
	cfg     CollectorConfig

	buf    []*models.Trade
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIntradayCollector(
	stream drepo.MarketStream,
	tracker *intraday.Tracker,
	archive drepo.TradeArchive,
	metrics drepo.Metrics,
	cfg CollectorConfig,
	lgr *applogger.Logger,
) *IntradayCollector {
	if archive == nil {
		archive = drepo.NopTradeArchive{}
	}
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if lgr == nil {
		lgr = applogger.Nop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.ReplayLimit <= 0 {
		cfg.ReplayLimit = 50000
	}
	return &IntradayCollector{
		stream:  stream,
		tracker: tracker,
		archive: archive,
		metrics: metrics,
		logger:  lgr.With(applogger.String("component", "intraday_collector")),
		cfg:     cfg,
	}
}

// IsConnected returns true if the market stream is connected.
func (c *IntradayCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start replays archived trades for the current session, connects and consumes in the background.
func (c *IntradayCollector) Start(ctx context.Context) error {
	c.replay(ctx)
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		_ = c.stream.Close()
		return err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(runCtx)
	}()
	return nil
}

func (c *IntradayCollector) replay(ctx context.Context) {
	replayer, ok := c.archive.(TradeReplayer)
	if !ok || len(c.cfg.Symbols) == 0 {
		return
	}
	from := time.Now().Add(-24 * time.Hour)
	applied := 0
	for _, sym := range c.cfg.Symbols {
		trades, err := replayer.Recent(ctx, sym, from, c.cfg.ReplayLimit)
		if err != nil {
			c.logger.Warn("Trade replay failed", applogger.String("symbol", sym), applogger.Error(err))
			continue
		}
		for i := len(trades) - 1; i >= 0; i-- {
			if c.tracker.Apply(trades[i]) {
				applied++
			}
		}
	}
	if applied > 0 {
		c.logger.Info("Session bars restored from archive", applogger.Int("trades", applied))
	}
}

func (c *IntradayCollector) consume(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()
	defer c.flush(context.Background())

	trCh, errCh := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.flush(ctx)
		case err, ok := <-errCh:
			if ok && err != nil {
				c.metrics.RecordError("stream")
				c.logger.Warn("Stream error, reconnecting", applogger.Error(err))
			}
			if !c.reconnect(ctx) {
				return
			}
			trCh, errCh = c.stream.Read(ctx)
		case t, ok := <-trCh:
			if !ok {
				// errCh carries the reason; wait for it
				trCh = nil
				continue
			}
			if t == nil {
				continue
			}
			c.tracker.Apply(t)
			c.buf = append(c.buf, t)
			if len(c.buf) >= c.cfg.BatchSize {
				c.flush(ctx)
			}
		}
	}
}

// reconnect retries until it succeeds or ctx ends.
func (c *IntradayCollector) reconnect(ctx context.Context) bool {
	for {
		err := c.stream.Reconnect(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		c.metrics.RecordError("stream_reconnect")
		c.logger.Warn("Reconnect failed", applogger.Error(err))
	}
}

// flush hands the buffered trades to the archive. A failed batch is kept while the
// buffer stays under ten batches, then dropped.
func (c *IntradayCollector) flush(ctx context.Context) {
	if len(c.buf) == 0 {
		return
	}
	start := time.Now()
	if err := c.archive.StoreBatch(ctx, c.buf); err != nil {
		c.metrics.RecordError("archive")
		if len(c.buf) < 10*c.cfg.BatchSize {
			c.logger.Warn("Archive write failed, keeping batch", applogger.Int("trades", len(c.buf)), applogger.Error(err))
			return
		}
		c.logger.Error("Archive write failed, dropping batch", applogger.Int("trades", len(c.buf)), applogger.Error(err))
	} else {
		c.metrics.RecordLatency("archive_flush", time.Since(start).Seconds())
	}
	c.buf = c.buf[:0]
}

// Shutdown stops consuming, flushes and closes the stream.
func (c *IntradayCollector) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.stream.Close()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
