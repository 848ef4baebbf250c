package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	resolves      *prometheus.CounterVec
	upstream      *prometheus.CounterVec
	trainDuration *prometheus.HistogramVec
	trainRows     *prometheus.GaugeVec
	forecastPct   *prometheus.GaugeVec
	cycleDuration prometheus.Histogram
	cycleSymbols  *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New registers the collectors on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		resolves: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_resolves_total",
				Help: "Symbol resolutions by outcome",
			},
			[]string{"outcome"},
		),
		upstream: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_upstream_requests_total",
				Help: "Upstream daily-series requests by result",
			},
			[]string{"result"},
		),
		trainDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_training_duration_seconds",
				Help:    "Model training and cross-validation time",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"symbol"},
		),
		trainRows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_training_instances",
				Help: "Training instances used by the current model",
			},
			[]string{"symbol"},
		),
		forecastPct: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_forecast_percent_change",
				Help: "Latest forecast percent change per symbol",
			},
			[]string{"symbol"},
		),
		cycleDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockcast_cycle_duration_seconds",
				Help:    "Universe refresh duration",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
			},
		),
		cycleSymbols: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_cycle_symbols",
				Help: "Symbols per outcome in the last universe refresh",
			},
			[]string{"outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordResolve(outcome string) {
	r.resolves.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordUpstream(result string) {
	r.upstream.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordTraining(symbol string, instances int, seconds float64) {
	r.trainDuration.WithLabelValues(symbol).Observe(seconds)
	r.trainRows.WithLabelValues(symbol).Set(float64(instances))
}

func (r *Recorder) RecordForecast(symbol string, percentChange float64) {
	r.forecastPct.WithLabelValues(symbol).Set(percentChange)
}

func (r *Recorder) RecordCycle(resolved, synthetic, missing int, seconds float64) {
	r.cycleDuration.Observe(seconds)
	r.cycleSymbols.WithLabelValues("resolved").Set(float64(resolved))
	r.cycleSymbols.WithLabelValues("synthetic").Set(float64(synthetic))
	r.cycleSymbols.WithLabelValues("missing").Set(float64(missing))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
