package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Acquisition.Freshness != 24*time.Hour || c.Acquisition.RateLimitBackoff != 60*time.Second {
		t.Fatalf("acquisition defaults not applied: %+v", c.Acquisition)
	}
	if c.Acquisition.MaxAdHocSymbols != 256 {
		t.Fatalf("max_ad_hoc_symbols = %d", c.Acquisition.MaxAdHocSymbols)
	}
	if c.Acquisition.BatchSize != 5 || c.Acquisition.IOWorkers != 3 || c.Acquisition.Deadline != 15*time.Minute {
		t.Fatalf("pipeline defaults not applied: %+v", c.Acquisition)
	}
	if c.Server.Port != 8080 || !c.Server.CORS || c.Server.RateLimit.Burst != 20 {
		t.Fatalf("server defaults not applied: %+v", c.Server)
	}
	if len(c.Universe) != len(DefaultUniverse) || c.Universe[0] != "AAPL" {
		t.Fatalf("universe = %v", c.Universe)
	}
	if len(c.Stream.Symbols) != len(c.Universe) {
		t.Fatalf("stream symbols should follow the universe, got %v", c.Stream.Symbols)
	}
	if c.History.Backend != "sqlite" || c.Model.Folds != 10 {
		t.Fatalf("unexpected defaults %+v %+v", c.History, c.Model)
	}
}

func TestLoadExplicitValuesWin(t *testing.T) {
	c, err := Load(writeConfig(t, `
environment: test
universe: [" msft", "aapl", "MSFT"]
server:
  cors: false
  port: 9090
acquisition:
  freshness: 12h
  synthetic_freshness: 30m
  rate_limit_backoff: 0s
history:
  backend: none
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if strings.Join(c.Universe, ",") != "MSFT,AAPL" {
		t.Fatalf("universe = %v", c.Universe)
	}
	if c.Server.CORS || c.Server.Port != 9090 {
		t.Fatalf("server = %+v", c.Server)
	}
	if c.Acquisition.Freshness != 12*time.Hour || c.Acquisition.RateLimitBackoff != 0 {
		t.Fatalf("acquisition = %+v", c.Acquisition)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("ALPHAVANTAGE_API_KEY", "av-key")
	t.Setenv("SYMBOLS", "nvda, amd")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("HISTORY_BACKEND", "none")

	c, err := LoadWithEnv(writeConfig(t, "environment: production\n"))
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if c.Upstream.APIKey != "av-key" || c.Log.Level != "debug" || c.History.Backend != "none" {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if strings.Join(c.Universe, ",") != "NVDA,AMD" {
		t.Fatalf("universe = %v", c.Universe)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %+v", c.Kafka)
	}
	if c.Acquisition.Snapshots != "redis" || c.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis = %+v / %s", c.Redis, c.Acquisition.Snapshots)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"bad environment":        "environment: moon\n",
		"production without key": "environment: production\n",
		"bad history backend":    "environment: test\nhistory:\n  backend: postgres\n",
		"redis without addr":     "environment: test\nacquisition:\n  snapshots: redis\n",
		"kafka without brokers":  "environment: test\nkafka:\n  enabled: true\n",
		"stream without key":     "environment: test\nstream:\n  enabled: true\n",
		"synthetic too fresh":    "environment: test\nacquisition:\n  freshness: 1h\n  synthetic_freshness: 2h\n",
		"bad timezone":           "environment: test\nschedule:\n  timezone: Mars/Olympus\n",
		"no ad hoc room":         "environment: test\nacquisition:\n  max_ad_hoc_symbols: 0\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
