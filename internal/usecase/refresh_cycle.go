package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/acquisition"
	applogger "StockCast/pkg/logger"
)

// ErrCycleRunning is returned when a refresh is requested while one is in progress.
var ErrCycleRunning = errors.New("refresh cycle already running")

// RefreshCycle refreshes the universe, ranks it, then stores and publishes the records.
type RefreshCycle struct {
	cache     *acquisition.Cache
	forecasts *ForecastService
	store     domrepo.ForecastStore
	publisher domrepo.ForecastPublisher
	universe  []string
	metrics   domrepo.Metrics
	logger    *applogger.Logger

	running atomic.Bool
	newID   func() string
}

func NewRefreshCycle(
	cache *acquisition.Cache,
	forecasts *ForecastService,
	store domrepo.ForecastStore,
	publisher domrepo.ForecastPublisher,
	universe []string,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
) *RefreshCycle {
	if store == nil {
		store = domrepo.NopForecastStore{}
	}
	if publisher == nil {
		publisher = domrepo.NopPublisher{}
	}
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if lgr == nil {
		lgr = applogger.Nop()
	}
	return &RefreshCycle{
		cache:     cache,
		forecasts: forecasts,
		store:     store,
		publisher: publisher,
		universe:  universe,
		metrics:   metrics,
		logger:    lgr.With(applogger.String("component", "refresh_cycle")),
		newID:     uuid.NewString,
	}
}

// Run executes one cycle. The summary is valid even when persistence fails;
// the returned error then joins the store and publish failures.
func (r *RefreshCycle) Run(ctx context.Context) (models.CycleSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return models.CycleSummary{}, ErrCycleRunning
	}
	defer r.running.Store(false)

	id := r.newID()
	lgr := r.logger.With(applogger.String("cycle_id", id))
	lgr.Info("Refresh cycle started", applogger.Int("symbols", len(r.universe)))

	summary := r.cache.RefreshUniverse(ctx, r.universe)
	summary.CycleID = id

	entries := make([]*acquisition.Entry, 0, len(summary.Resolved)+len(summary.Synthetic))
	for _, group := range [][]string{summary.Resolved, summary.Synthetic} {
		for _, sym := range group {
			if e, ok := r.cache.Lookup(sym); ok {
				entries = append(entries, e)
			}
		}
	}
	records := r.forecasts.Ranked(entries)
	r.forecasts.remember(records)
	for _, rec := range records {
		r.metrics.RecordForecast(rec.Symbol, rec.PercentChange)
	}

	var errs []error
	if err := r.store.Save(ctx, id, records); err != nil {
		r.metrics.RecordError("store")
		lgr.Error("Failed to store forecasts", applogger.Error(err))
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := r.publisher.PublishBatch(ctx, id, records); err != nil {
		r.metrics.RecordError("publish")
		lgr.Error("Failed to publish forecasts", applogger.Error(err))
		errs = append(errs, fmt.Errorf("publish: %w", err))
	}

	lgr.Info("Refresh cycle finished",
		applogger.Int("records", len(records)),
		applogger.Int("missing", len(summary.Missing)),
		applogger.Bool("timed_out", summary.TimedOut),
		applogger.Duration("elapsed", summary.Duration),
	)
	return summary, errors.Join(errs...)
}
