package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/usecase"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
)

type fakeCycle struct {
	runs chan struct{}
	err  error
}

func (c *fakeCycle) Run(context.Context) (models.CycleSummary, error) {
	c.runs <- struct{}{}
	return models.CycleSummary{CycleID: "c1", Resolved: []string{"AAPL"}}, c.err
}

type fakeCollector struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (c *fakeCollector) Start(context.Context) error {
	c.started.Store(true)
	return c.startErr
}

func (c *fakeCollector) Shutdown(context.Context) error {
	c.stopped.Store(true)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Schedule.Enabled = true
	cfg.Schedule.Refresh = "0 0 0 1 1 *"
	cfg.Schedule.Prefetch = true
	return cfg
}

func testServer() *xhttp.Server {
	return xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetrics(false))
}

func runApp(t *testing.T, app *App, ran <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		cancel()
		t.Fatalf("prefetch did not run")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run() did not return after cancel")
	}
}

func TestAppPrefetchesAndShutsDown(t *testing.T) {
	cycle := &fakeCycle{runs: make(chan struct{}, 1)}
	col := &fakeCollector{}
	app := New(testConfig(), nil, testServer(), cycle, col, time.UTC)
	runApp(t, app, cycle.runs)
	if !col.started.Load() || !col.stopped.Load() {
		t.Fatalf("collector lifecycle: started=%v stopped=%v", col.started.Load(), col.stopped.Load())
	}
}

func TestAppRunsWithoutCollector(t *testing.T) {
	cycle := &fakeCycle{runs: make(chan struct{}, 1)}
	col := &fakeCollector{startErr: errors.New("dial failed")}
	app := New(testConfig(), nil, testServer(), cycle, col, time.UTC)
	runApp(t, app, cycle.runs)
	if col.stopped.Load() {
		t.Fatalf("collector that failed to start should not be shut down")
	}
}

func TestRefreshIgnoresOverlap(t *testing.T) {
	cycle := &fakeCycle{runs: make(chan struct{}, 1), err: usecase.ErrCycleRunning}
	app := New(testConfig(), nil, testServer(), cycle, nil, time.UTC)
	if err := app.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() = %v, want nil for overlapping cycle", err)
	}
}
