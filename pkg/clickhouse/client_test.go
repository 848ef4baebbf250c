package clickhouse

import (
	"context"
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := defaultClientConfig()
	for _, opt := range []ClientOption{
		WithAddress("ch.local", 9440),
		WithDatabase("stockcast"),
		WithCredentials("svc", "p@ss"),
		WithTimeouts(2*time.Second, 0),
		WithAsyncInsert(true),
	} {
		opt(cfg)
	}
	u, err := url.Parse(buildDSN(*cfg))
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9440" || u.Path != "/stockcast" {
		t.Fatalf("unexpected dsn %s", u)
	}
	if pw, _ := u.User.Password(); u.User.Username() != "svc" || pw != "p@ss" {
		t.Fatalf("credentials not encoded: %s", u.User)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "2s" || q.Get("read_timeout") != "10s" || q.Get("async_insert") != "1" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(context.Background()); err == nil {
		t.Fatalf("expected error without host")
	}
}
