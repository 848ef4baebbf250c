package acquisition

import (
	"context"
	"errors"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/model"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/queue"
)

// lead runs the fetch stage for a flight this caller started, then hands off to training.
func (c *Cache) lead(ctx context.Context, sym string, f *flight) {
	src, err := c.acquire(ctx, sym)
	if err != nil {
		c.settle(sym, f, Result{Kind: Unavailable, Err: err}, nil)
		return
	}
	if src.reuse != nil {
		c.settle(sym, f, Result{Kind: src.reuse.kind(), Entry: src.reuse, Reused: true}, nil)
		return
	}
	c.dispatchTraining(ctx, sym, f, src)
}

// dispatchTraining trains on the CPU pool without blocking the fetch stage.
// If the flight's ctx ends first it settles Unavailable and the trained model is discarded.
func (c *Cache) dispatchTraining(ctx context.Context, sym string, f *flight, src sourced) {
	run := func(jctx context.Context) error {
		entry := c.train(sym, src)
		if err := jctx.Err(); err != nil {
			c.settle(sym, f, Result{Kind: Unavailable, Err: err}, nil)
			return nil
		}
		c.settle(sym, f, Result{Kind: entry.kind(), Entry: entry}, entry)
		return nil
	}

	if c.deps.CPUPool == nil {
		_ = run(ctx)
		return
	}
	if err := c.deps.CPUPool.Submit(ctx, queue.NewJob("train:"+sym, run)); err != nil {
		c.settle(sym, f, Result{Kind: Unavailable, Err: err}, nil)
		return
	}
	go func() {
		select {
		case <-f.done:
		case <-ctx.Done():
			c.settle(sym, f, Result{Kind: Unavailable, Err: ctx.Err()}, nil)
		}
	}()
}

// train builds the entry for freshly sourced bars. An undertrained model is kept;
// it forecasts the last close.
func (c *Cache) train(sym string, src sourced) *Entry {
	start := time.Now()
	m := model.New(c.deps.Model, c.deps.Session)
	err := m.Train(src.series.Bars)
	elapsed := time.Since(start)

	lgr := c.deps.Logger.With(applogger.String("symbol", sym), applogger.Bool("synthetic", src.synthetic))
	switch {
	case errors.Is(err, model.ErrUndertrained):
		lgr.Warn("Model undertrained, forecasts fall back to last close", applogger.Int("bars", len(src.series.Bars)))
	case err != nil:
		lgr.Error("Model training failed", applogger.Error(err))
		c.deps.Metrics.RecordError("train")
	default:
		d := m.Diagnostics()
		c.deps.Metrics.RecordTraining(sym, d.Instances, elapsed.Seconds())
		lgr.Info("Model trained",
			applogger.Int("instances", d.Instances),
			applogger.Int("folds", d.Folds),
			applogger.Float64("cv_correlation", d.Correlation),
			applogger.Float64("cv_mae", d.MAE),
			applogger.Float64("cv_rmse", d.RMSE),
			applogger.Duration("elapsed", elapsed),
		)
	}

	return &Entry{
		Symbol:      sym,
		History:     src.series.Bars,
		Model:       m,
		RefreshedAt: c.now(),
		Synthetic:   src.synthetic,
	}
}

// RefreshUniverse resolves symbols in batches under the configured deadline.
// Fetches run on the IO pool; each symbol's training is dispatched to the CPU pool
// as soon as its own fetch completes. Symbols that do not settle in time are reported missing.
func (c *Cache) RefreshUniverse(ctx context.Context, symbols []string) models.CycleSummary {
	started := c.now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Deadline)
	defer cancel()

	universe := dedupe(symbols)
	c.mu.Lock()
	for _, sym := range universe {
		c.pinned[sym] = struct{}{}
	}
	c.mu.Unlock()
	type outcome struct {
		sym  string
		kind Kind
	}
	settled := make(chan outcome, len(universe))
	report := func(sym string, k Kind) { settled <- outcome{sym: sym, kind: k} }

	submitted := 0
submit:
	for i := 0; i < len(universe); i += c.cfg.BatchSize {
		if i > 0 {
			if err := c.sleep(ctx, c.cfg.BatchDelay); err != nil {
				break
			}
		}
		end := i + c.cfg.BatchSize
		if end > len(universe) {
			end = len(universe)
		}
		for _, sym := range universe[i:end] {
			sym := sym
			job := func(jctx context.Context) error {
				c.refreshOne(jctx, sym, report)
				return nil
			}
			if c.deps.IOPool == nil {
				go func() { _ = job(ctx) }()
			} else if err := c.deps.IOPool.Submit(ctx, queue.NewJob("fetch:"+sym, job)); err != nil {
				c.deps.Logger.Warn("Fetch not scheduled", applogger.String("symbol", sym), applogger.Error(err))
				break submit
			}
			submitted++
		}
	}

	kinds := make(map[string]Kind, len(universe))
	timedOut := false
collect:
	for len(kinds) < submitted {
		select {
		case o := <-settled:
			kinds[o.sym] = o.kind
		case <-ctx.Done():
			timedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
			break collect
		}
	}
	if submitted < len(universe) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		timedOut = true
	}

	summary := models.CycleSummary{StartedAt: started, TimedOut: timedOut}
	for _, sym := range universe {
		switch k, ok := kinds[sym]; {
		case ok && k == Resolved:
			summary.Resolved = append(summary.Resolved, sym)
		case ok && k == Synthetic:
			summary.Synthetic = append(summary.Synthetic, sym)
		default:
			summary.Missing = append(summary.Missing, sym)
		}
	}
	summary.Duration = c.now().Sub(started)
	c.deps.Metrics.RecordCycle(len(summary.Resolved), len(summary.Synthetic), len(summary.Missing), summary.Duration.Seconds())
	c.deps.Logger.Info("Universe refreshed",
		applogger.Int("resolved", len(summary.Resolved)),
		applogger.Int("synthetic", len(summary.Synthetic)),
		applogger.Strings("missing", summary.Missing),
		applogger.Bool("timed_out", timedOut),
		applogger.Duration("elapsed", summary.Duration),
	)
	return summary
}

// refreshOne runs on the IO pool and performs the fetch itself when it leads the flight.
// The outcome is reported when the flight settles.
func (c *Cache) refreshOne(ctx context.Context, sym string, report func(string, Kind)) {
	if e, ok := c.fresh(sym); ok {
		c.deps.Metrics.RecordResolve("fresh")
		report(sym, e.kind())
		return
	}
	if ctx.Err() != nil {
		return
	}
	f, leader := c.flights.join(ctx, sym, c.cfg.Deadline)
	go func() {
		select {
		case <-f.done:
			report(sym, f.res.Kind)
		case <-ctx.Done():
			c.flights.leave(sym, f)
		}
	}()
	if leader {
		c.lead(f.ctx, sym, f)
	}
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := normalize(s)
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
