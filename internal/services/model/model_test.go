package model

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/util"
)

var est = time.FixedZone("EST", -5*3600)

// newestFirst builds bars from ascending closes and returns them newest first.
func newestFirst(closes []float64) []models.PriceBar {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	asc := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		asc[i] = models.PriceBar{
			Date:   day.AddDate(0, 0, i),
			Open:   c * 0.998,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return models.Ascending(asc)
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 0.5*float64(i)
	}
	return out
}

func walk(seed int64, n int) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 50 + r.Float64()*500
	for i := range out {
		p *= 1 + r.NormFloat64()*0.03
		out[i] = p
	}
	return out
}

func testModel(cfg Config) *Model {
	return New(cfg, util.NewSession(est, nil))
}

func TestTrainUndertrained(t *testing.T) {
	m := testModel(DefaultConfig())
	history := newestFirst(ramp(40))
	err := m.Train(history)
	if !errors.Is(err, ErrUndertrained) {
		t.Fatalf("expected ErrUndertrained, got %v", err)
	}
	if m.State() != Untrained {
		t.Fatalf("state = %v, want untrained", m.State())
	}
	if got := m.Predict(history[0], history); got != history[0].Close {
		t.Fatalf("untrained predict = %v, want last close %v", got, history[0].Close)
	}
}

func TestStateMachine(t *testing.T) {
	m := testModel(DefaultConfig())
	history := newestFirst(walk(1, 100))
	if err := m.Train(history); err != nil {
		t.Fatalf("train: %v", err)
	}
	if m.State() != Trained {
		t.Fatalf("state = %v, want trained", m.State())
	}
	d := m.Diagnostics()
	if d.Instances != 100-1-35 || d.Folds != 10 || d.State != "trained" {
		t.Fatalf("unexpected diagnostics %+v", d)
	}

	m.MarkStale()
	if m.State() != Stale {
		t.Fatalf("state = %v, want stale", m.State())
	}
	if got := m.Predict(history[0], history); got != history[0].Close {
		t.Fatalf("stale predict = %v, want pass-through %v", got, history[0].Close)
	}
	if rate, n := m.HitRate(history); rate != 0 || n != 0 {
		t.Fatalf("stale hit rate = (%v, %d), want (0, 0)", rate, n)
	}
}

func TestPredictShortHistoryPassesThrough(t *testing.T) {
	m := testModel(DefaultConfig())
	history := newestFirst(walk(2, 100))
	if err := m.Train(history); err != nil {
		t.Fatalf("train: %v", err)
	}
	short := history[:20]
	if got := m.Predict(short[0], short); got != short[0].Close {
		t.Fatalf("short history predict = %v, want %v", got, short[0].Close)
	}
}

func TestPredictRespectsDeviationCaps(t *testing.T) {
	closed := time.Date(2024, 3, 16, 12, 0, 0, 0, est) // Saturday
	open := time.Date(2024, 3, 13, 10, 0, 0, 0, est)
	for seed := int64(1); seed <= 15; seed++ {
		m := testModel(DefaultConfig())
		history := newestFirst(walk(seed, 120))
		if err := m.Train(history); err != nil {
			t.Fatalf("seed %d: train: %v", seed, err)
		}
		last := history[0].Close
		for _, tc := range []struct {
			at  time.Time
			cap float64
		}{{closed, ClosedMaxDeviation}, {open, OpenMaxDeviation}} {
			got := m.PredictAt(tc.at, history[0], history)
			if math.IsNaN(got) {
				t.Fatalf("seed %d: NaN prediction", seed)
			}
			if dev := math.Abs(got-last) / last; dev > tc.cap+1e-12 {
				t.Fatalf("seed %d at %v: deviation %.4f exceeds cap %.2f", seed, tc.at, dev, tc.cap)
			}
		}
	}
}

func TestHitRateOnSteadyTrend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lambda = 1e-3
	m := testModel(cfg)
	history := newestFirst(ramp(80))
	if err := m.Train(history); err != nil {
		t.Fatalf("train: %v", err)
	}
	rate, n := m.HitRate(history)
	if n != cfg.HitRateWindow {
		t.Fatalf("samples = %d, want %d", n, cfg.HitRateWindow)
	}
	if rate < 0.9 || rate > 1 {
		t.Fatalf("hit rate on a steady trend = %v", rate)
	}
	if r := m.Report(); r.Correlation < 0.99 {
		t.Fatalf("cv correlation on a steady trend = %v", r.Correlation)
	}
}

func TestHitRateUntrained(t *testing.T) {
	m := testModel(DefaultConfig())
	if rate, n := m.HitRate(newestFirst(ramp(80))); rate != 0 || n != 0 {
		t.Fatalf("untrained hit rate = (%v, %d)", rate, n)
	}
}
