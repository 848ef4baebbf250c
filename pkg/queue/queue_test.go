package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startedPool(t *testing.T, cfg PoolConfig) *Pool {
	t.Helper()
	p := NewPool(cfg, nil)
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = p.Stop(context.Background()) })
	return p
}

func TestPoolRunsAllJobs(t *testing.T) {
	p := startedPool(t, PoolConfig{Name: "io", Kind: KindIO, Workers: 3})
	var count int64
	for i := 0; i < 50; i++ {
		err := p.Submit(context.Background(), NewJob("inc", func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		}))
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := atomic.LoadInt64(&count); got != 50 {
		t.Fatalf("ran %d jobs, want 50", got)
	}
}

func TestPoolCPUDefaultsToNumCPU(t *testing.T) {
	p := NewPool(PoolConfig{Kind: KindCPU}, nil)
	if p.Workers() < 1 || p.Name() != "cpu" {
		t.Fatalf("unexpected defaults: workers=%d name=%q", p.Workers(), p.Name())
	}
}

func TestPoolRecoversPanicsAndRetries(t *testing.T) {
	p := startedPool(t, PoolConfig{Kind: KindIO, Workers: 1, RetryLimit: 1, RetryDelay: time.Millisecond})
	var attempts int64
	_ = p.Submit(context.Background(), NewJob("flaky", func(ctx context.Context) error {
		if atomic.AddInt64(&attempts, 1) == 1 {
			panic("boom")
		}
		return nil
	}))
	var failures int64
	_ = p.Submit(context.Background(), NewJob("broken", func(ctx context.Context) error {
		atomic.AddInt64(&failures, 1)
		return errors.New("always")
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("flaky attempts = %d, want 2", attempts)
	}
	if failures != 2 {
		t.Fatalf("broken attempts = %d, want 2 (one retry)", failures)
	}
}

func TestPoolSkipsCancelledJobs(t *testing.T) {
	p := startedPool(t, PoolConfig{Kind: KindIO, Workers: 1, QueueSize: 4})
	release := make(chan struct{})
	_ = p.Submit(context.Background(), NewJob("block", func(ctx context.Context) error {
		<-release
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	var ran int64
	_ = p.Submit(ctx, NewJob("late", func(ctx context.Context) error {
		atomic.AddInt64(&ran, 1)
		return nil
	}))
	cancel()
	close(release)

	wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer wcancel()
	if err := p.Wait(wctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if ran != 0 {
		t.Fatalf("cancelled job ran")
	}
}

func TestPoolSubmitAfterStop(t *testing.T) {
	p := NewPool(PoolConfig{Kind: KindIO, Workers: 2}, nil)
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	err := p.Submit(context.Background(), NewJob("noop", func(context.Context) error { return nil }))
	if !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
	if err := p.Start(); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("restart after stop = %v", err)
	}
}

func TestPoolSubmitHonoursContextWhenFull(t *testing.T) {
	p := startedPool(t, PoolConfig{Kind: KindIO, Workers: 1})
	release := make(chan struct{})
	defer close(release)
	_ = p.Submit(context.Background(), NewJob("block", func(ctx context.Context) error {
		<-release
		return nil
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, NewJob("second", func(context.Context) error { return nil }))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
