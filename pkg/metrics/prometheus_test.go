package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordResolve("fresh")
	r.RecordResolve("fresh")
	r.RecordResolve("synthetic")
	r.RecordUpstream("rate_limited")
	r.RecordError("mirror_write")

	if got := testutil.ToFloat64(r.resolves.WithLabelValues("fresh")); got != 2 {
		t.Errorf("fresh resolves = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.upstream.WithLabelValues("rate_limited")); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("mirror_write")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestRecorderGauges(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.RecordForecast("AAPL", -1.25)
	r.RecordTraining("AAPL", 64, 0.02)
	r.RecordCycle(27, 2, 1, 42)

	if got := testutil.ToFloat64(r.forecastPct.WithLabelValues("AAPL")); got != -1.25 {
		t.Errorf("forecast gauge = %v", got)
	}
	if got := testutil.ToFloat64(r.trainRows.WithLabelValues("AAPL")); got != 64 {
		t.Errorf("instances gauge = %v", got)
	}
	if got := testutil.ToFloat64(r.cycleSymbols.WithLabelValues("missing")); got != 1 {
		t.Errorf("missing gauge = %v", got)
	}
	if n := testutil.CollectAndCount(r.cycleDuration); n != 1 {
		t.Errorf("cycle histogram series = %d", n)
	}
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
