package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAllowConsumesAndRefills(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if !l.Allow("client", 2, 1) {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.Allow("client", 2, 1) {
		t.Fatalf("bucket should be empty")
	}
	if !l.Allow("other", 2, 1) {
		t.Fatalf("keys must not share buckets")
	}
	now = now.Add(time.Second)
	if !l.Allow("client", 2, 1) {
		t.Fatalf("bucket should refill after a second")
	}
}

func TestWaitBlocksUntilToken(t *testing.T) {
	l := New()
	if err := l.Wait(context.Background(), "upstream", 1, 50); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	start := time.Now()
	if err := l.Wait(context.Background(), "upstream", 1, 50); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Fatalf("second token came too early: %v", elapsed)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	l := New()
	_ = l.Wait(context.Background(), "k", 1, 0.001)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "k", 1, 0.001); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
