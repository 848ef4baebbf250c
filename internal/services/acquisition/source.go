package acquisition

import (
	"context"
	"errors"
	"fmt"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/internal/service/alphavantage"
	"StockCast/internal/service/cache"
	applogger "StockCast/pkg/logger"
)

// sourced is what the fetch stage hands to training: fresh bars, or an existing entry to reuse.
type sourced struct {
	series    *models.DailySeries
	synthetic bool
	reuse     *Entry
}

// acquire runs the fallback chain for sym. It only fails when ctx ends.
func (c *Cache) acquire(ctx context.Context, sym string) (sourced, error) {
	lgr := c.deps.Logger.With(applogger.String("symbol", sym))

	if series, ok := c.fromSnapshot(ctx, sym); ok {
		lgr.Debug("History taken from shared snapshot")
		return sourced{series: series}, nil
	}

	series, err := c.fetch(ctx, sym)
	if err == nil {
		c.persist(ctx, sym, series)
		return sourced{series: series}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return sourced{}, ctxErr
	}

	if errors.Is(err, repository.ErrRateLimited) {
		if stale := c.stale(sym); stale != nil {
			lgr.Warn("Rate limited, reusing cached entry", applogger.Duration("age", c.now().Sub(stale.RefreshedAt)))
			return sourced{reuse: stale}, nil
		}
		lgr.Warn("Rate limited, backing off before one retry", applogger.Duration("backoff", c.cfg.RateLimitBackoff))
		if err := c.sleep(ctx, c.cfg.RateLimitBackoff); err != nil {
			return sourced{}, err
		}
		series, err = c.fetch(ctx, sym)
		if err == nil {
			c.persist(ctx, sym, series)
			return sourced{series: series}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return sourced{}, ctxErr
		}
		lgr.Warn("Retry failed, using synthetic history", applogger.Error(err))
		return c.synthesize(sym), nil
	}

	if stale := c.stale(sym); stale != nil {
		lgr.Warn("Upstream unavailable, reusing cached entry", applogger.Error(err))
		return sourced{reuse: stale}, nil
	}
	lgr.Warn("Upstream unavailable, using synthetic history", applogger.Error(err))
	return c.synthesize(sym), nil
}

func (c *Cache) fetch(ctx context.Context, sym string) (*models.DailySeries, error) {
	series, err := c.deps.Upstream.FetchDaily(ctx, sym)
	switch {
	case err == nil:
		c.deps.Metrics.RecordUpstream("ok")
	case errors.Is(err, repository.ErrRateLimited):
		c.deps.Metrics.RecordUpstream("rate_limited")
	default:
		c.deps.Metrics.RecordUpstream("unavailable")
	}
	return series, err
}

func (c *Cache) fromSnapshot(ctx context.Context, sym string) (*models.DailySeries, bool) {
	if c.deps.Snapshots == nil {
		return nil, false
	}
	raw, ok, err := c.deps.Snapshots.GetBytes(ctx, cache.SnapshotKey(sym))
	if err != nil {
		c.deps.Logger.Warn("Snapshot read failed", applogger.String("symbol", sym), applogger.Error(err))
		c.deps.Metrics.RecordError("snapshot_read")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	series, err := alphavantage.ParseDaily(sym, raw)
	if err != nil {
		c.deps.Logger.Warn("Snapshot undecodable", applogger.String("symbol", sym), applogger.Error(err))
		return nil, false
	}
	return series, true
}

// persist writes the durable mirrors and the shared snapshot. Failures are logged, not returned.
func (c *Cache) persist(ctx context.Context, sym string, series *models.DailySeries) {
	c.mirror(sym, series)
	if c.deps.Snapshots == nil {
		return
	}
	if err := c.deps.Snapshots.SetBytes(ctx, cache.SnapshotKey(sym), series.Raw, c.cfg.Freshness); err != nil {
		c.deps.Logger.Warn("Snapshot write failed", applogger.String("symbol", sym), applogger.Error(err))
		c.deps.Metrics.RecordError("snapshot_write")
	}
}

func (c *Cache) mirror(sym string, series *models.DailySeries) {
	if c.deps.Mirror == nil {
		return
	}
	if err := c.deps.Mirror.Write(sym, series.Raw, series.Bars); err != nil {
		c.deps.Logger.Warn("Mirror write failed", applogger.String("symbol", sym), applogger.Error(err))
		c.deps.Metrics.RecordError("mirror_write")
	}
}

func (c *Cache) synthesize(sym string) sourced {
	asOf := c.deps.Session.TradingDate(c.now())
	bars := GenerateSynthetic(sym, c.cfg.SyntheticSessions, c.cfg.SyntheticSeed, asOf)
	raw, err := models.EncodeDailyPayload(sym, bars, fmt.Sprintf("Synthetic daily prices for %s", sym))
	if err != nil {
		c.deps.Logger.Warn("Synthetic payload encoding failed", applogger.String("symbol", sym), applogger.Error(err))
	}
	series := &models.DailySeries{Symbol: sym, Bars: bars, Raw: raw}
	if raw != nil {
		c.mirror(sym, series)
	}
	return sourced{series: series, synthetic: true}
}
