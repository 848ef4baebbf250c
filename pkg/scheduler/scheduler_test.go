package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := New(context.Background(), time.UTC, nil)
	if err := s.Register("bad", "every day", func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
	if err := s.Register("ok", "0 30 16 * * MON-FRI", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.Register("ok", "0 0 * * * *", func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestRunNow(t *testing.T) {
	s := New(context.Background(), time.UTC, nil)
	want := errors.New("boom")
	var calls int32
	if err := s.Register("refresh", "0 0 0 1 1 *", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return want
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.RunNow("refresh"); !errors.Is(err, want) {
		t.Fatalf("RunNow() = %v, want %v", err, want)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d", calls)
	}
	if err := s.RunNow("missing"); err == nil {
		t.Fatalf("expected error for unknown job")
	}
}

func TestScheduledRunAndStop(t *testing.T) {
	s := New(context.Background(), time.UTC, nil)
	ran := make(chan struct{}, 4)
	if err := s.Register("tick", "* * * * * *", func(context.Context) error {
		ran <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if s.Next().IsZero() {
		t.Fatalf("Next() is zero after register")
	}
	s.Start()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
