package model

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/indicators"
	"StockCast/pkg/util"
)

// ErrUndertrained is returned by Train when the history yields too few instances.
var ErrUndertrained = errors.New("model: not enough history to train")

type State int

const (
	Untrained State = iota
	Trained
	Stale
)

func (s State) String() string {
	switch s {
	case Trained:
		return "trained"
	case Stale:
		return "stale"
	default:
		return "untrained"
	}
}

type Config struct {
	MinInstances  int
	Folds         int
	Seed          int64
	Lambda        float64
	HitRateWindow int
}

func DefaultConfig() Config {
	return Config{MinInstances: 10, Folds: 10, Seed: 1, Lambda: 1, HitRateWindow: 20}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinInstances <= 0 {
		c.MinInstances = d.MinInstances
	}
	if c.Folds <= 0 {
		c.Folds = d.Folds
	}
	if c.Lambda <= 0 {
		c.Lambda = d.Lambda
	}
	if c.HitRateWindow <= 0 {
		c.HitRateWindow = d.HitRateWindow
	}
	return c
}

// Model owns one trained regressor for a symbol.
type Model struct {
	cfg     Config
	session *util.Session

	mu        sync.RWMutex
	reg       Regressor
	state     State
	report    CVReport
	instances int
	trainedAt time.Time
}

func New(cfg Config, session *util.Session) *Model {
	if session == nil {
		session = util.NewSession(nil, nil)
	}
	return &Model{cfg: cfg.withDefaults(), session: session}
}

func (m *Model) newRegressor() Regressor { return NewRidge(m.cfg.Lambda) }

// Instances builds one feature row per index in [RequiredWindow, n-1) of the ascending series,
// labelled with the next session's close.
func Instances(ascending []models.PriceBar) ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	closes := models.Closes(ascending)
	for i := indicators.RequiredWindow; i < len(ascending)-1; i++ {
		X = append(X, indicators.FeaturesFor(ascending[i], closes, i).Values())
		y = append(y, ascending[i+1].Close)
	}
	return X, y
}

// Train fits the regressor on history ordered newest first.
func (m *Model) Train(history []models.PriceBar) error {
	X, y := Instances(models.Ascending(history))
	if len(X) < m.cfg.MinInstances {
		return fmt.Errorf("%w: %d instances, need %d", ErrUndertrained, len(X), m.cfg.MinInstances)
	}

	reg := m.newRegressor()
	if err := reg.Fit(X, y); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	report, err := CrossValidate(m.newRegressor, X, y, m.cfg.Folds, m.cfg.Seed)
	if err != nil {
		return fmt.Errorf("cross-validate: %w", err)
	}

	m.mu.Lock()
	m.reg = reg
	m.state = Trained
	m.report = report
	m.instances = len(X)
	m.trainedAt = time.Now()
	m.mu.Unlock()
	return nil
}

func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// MarkStale retires a trained model once its backing history has been replaced.
func (m *Model) MarkStale() {
	m.mu.Lock()
	if m.state == Trained {
		m.state = Stale
	}
	m.mu.Unlock()
}

func (m *Model) Report() CVReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report
}

func (m *Model) Diagnostics() models.ModelDiagnostics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.ModelDiagnostics{
		State:       m.state.String(),
		Instances:   m.instances,
		Folds:       m.report.Folds,
		Correlation: m.report.Correlation,
		MAE:         m.report.MAE,
		RMSE:        m.report.RMSE,
	}
}

// Predict forecasts the next close at the session clock.
func (m *Model) Predict(latest models.PriceBar, history []models.PriceBar) float64 {
	return m.PredictAt(m.session.Now(), latest, history)
}

// PredictAt forecasts the next close as of now. history is newest first and latest is the bar
// the forecast is anchored on. Any failure yields latest.Close.
func (m *Model) PredictAt(now time.Time, latest models.PriceBar, history []models.PriceBar) (pred float64) {
	m.mu.RLock()
	reg, state := m.reg, m.state
	m.mu.RUnlock()
	if state != Trained || reg == nil || len(history) < indicators.MACDSlow {
		return latest.Close
	}
	defer func() {
		if r := recover(); r != nil {
			pred = latest.Close
		}
	}()

	closes := models.Closes(models.Ascending(history))
	f := indicators.FeaturesFor(latest, closes, len(closes)-1)
	raw := reg.Predict(f.Values())
	open := m.session.IsOpen(now)
	return Adjust(raw, f, latest, open, m.session.RemainingFraction(now))
}

// HitRate replays the model's raw one-step predictions over the most recent instances of
// history (newest first) and returns the fraction whose direction matched the realized move.
// Fewer than two samples give a rate of 0.
func (m *Model) HitRate(history []models.PriceBar) (rate float64, samples int) {
	m.mu.RLock()
	reg, state := m.reg, m.state
	m.mu.RUnlock()
	if state != Trained || reg == nil {
		return 0, 0
	}

	asc := models.Ascending(history)
	closes := models.Closes(asc)
	start := len(asc) - 1 - m.cfg.HitRateWindow
	if start < indicators.RequiredWindow {
		start = indicators.RequiredWindow
	}
	hits := 0
	for i := start; i < len(asc)-1; i++ {
		pred := reg.Predict(indicators.FeaturesFor(asc[i], closes, i).Values())
		if !finite(pred) {
			continue
		}
		samples++
		if direction(pred-closes[i]) == direction(closes[i+1]-closes[i]) {
			hits++
		}
	}
	if samples < 2 {
		return 0, samples
	}
	return float64(hits) / float64(samples), samples
}

func direction(d float64) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	}
	return 0
}
