package cache

import (
	"context"
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	key := SnapshotKey("aapl")
	if key != "stockcast:daily:AAPL" {
		t.Fatalf("unexpected key %q", key)
	}
	if err := c.SetBytes(ctx, key, []byte("payload"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := c.GetBytes(ctx, key)
	if err != nil || !ok || string(b) != "payload" {
		t.Fatalf("get = %q %v %v", b, ok, err)
	}

	now = now.Add(2 * time.Hour)
	if _, ok, _ := c.GetBytes(ctx, key); ok {
		t.Fatalf("entry should have expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted on read")
	}
}

func TestTTLCacheNoExpiryAndDelete(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache()
	_ = c.SetBytes(ctx, "k", []byte("v"), 0)
	if _, ok, _ := c.GetBytes(ctx, "k"); !ok {
		t.Fatalf("zero ttl should never expire")
	}
	_ = c.Delete(ctx, "k")
	if _, ok, _ := c.GetBytes(ctx, "k"); ok {
		t.Fatalf("deleted entry still present")
	}
}
