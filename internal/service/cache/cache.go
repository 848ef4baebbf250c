package cache

import (
	"context"
	"strings"
	"time"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SnapshotKey is the key under which a symbol's daily history payload is shared.
func SnapshotKey(symbol string) string {
	return "stockcast:daily:" + strings.ToUpper(symbol)
}
