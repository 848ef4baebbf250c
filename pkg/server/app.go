package server

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/usecase"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/scheduler"
)

const refreshJob = "refresh"

// Cycle runs one universe refresh.
type Cycle interface {
	Run(ctx context.Context) (models.CycleSummary, error)
}

// Collector is the optional live trade feed.
type Collector interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	cycle      Cycle
	collector  Collector
	location   *time.Location

	scheduler *scheduler.Scheduler
	prefetch  sync.WaitGroup
}

// New creates a new App. cycle and collector may be nil.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	httpServer *xhttp.Server,
	cycle Cycle,
	collector Collector,
	location *time.Location,
) *App {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		logger:     lgr.With(applogger.String("component", "app")),
		httpServer: httpServer,
		cycle:      cycle,
		collector:  collector,
		location:   location,
	}
}

// Run starts the application and blocks until ctx is done or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			// the forecast surface works without the live feed
			a.logger.Warn("Intraday collector not started", applogger.Error(err))
			a.collector = nil
		} else {
			a.logger.Info("Intraday collector started", applogger.Strings("symbols", a.cfg.Stream.Symbols))
		}
	}

	if a.cycle != nil && a.cfg.Schedule.Enabled {
		a.scheduler = scheduler.New(ctx, a.location, a.logger)
		if err := a.scheduler.Register(refreshJob, a.cfg.Schedule.Refresh, a.refresh); err != nil {
			return err
		}
		a.scheduler.Start()
		a.logger.Info("Refresh scheduled",
			applogger.String("spec", a.cfg.Schedule.Refresh),
			applogger.String("next", a.scheduler.Next().Format(time.RFC3339)),
		)
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("HTTP server start error", applogger.Error(err))
		return err
	}

	if a.cycle != nil && a.cfg.Schedule.Prefetch {
		a.prefetch.Add(1)
		go func() {
			defer a.prefetch.Done()
			if err := a.refresh(ctx); err != nil {
				a.logger.Warn("Startup prefetch incomplete", applogger.Error(err))
			}
		}()
	}

	<-ctx.Done()
	a.logger.Info("Shutdown signal received")
	return a.shutdown()
}

func (a *App) refresh(ctx context.Context) error {
	summary, err := a.cycle.Run(ctx)
	if errors.Is(err, usecase.ErrCycleRunning) {
		a.logger.Info("Refresh skipped, previous cycle still running")
		return nil
	}
	if summary.CycleID != "" {
		a.logger.Info("Universe refreshed",
			applogger.String("cycle_id", summary.CycleID),
			applogger.Int("resolved", len(summary.Resolved)),
			applogger.Int("synthetic", len(summary.Synthetic)),
			applogger.Strings("missing", summary.Missing),
		)
	}
	return err
}

// shutdown gracefully stops all services. Pools and stores are released by the caller.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("HTTP shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.logger.Warn("Scheduler stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if err := waitGroup(ctx, &a.prefetch); err != nil {
		a.logger.Warn("Prefetch still running at shutdown", applogger.Error(err))
	}
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("Collector stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.logger.Info("Shutdown complete")
	return errors.Join(errs...)
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
