package signal

import (
	"errors"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/indicators"
	"StockCast/pkg/util"
)

var ErrEmptyHistory = errors.New("signal: empty history")

// Forecaster is the part of a trained model the engine needs.
type Forecaster interface {
	PredictAt(now time.Time, latest models.PriceBar, history []models.PriceBar) float64
	HitRate(history []models.PriceBar) (float64, int)
	Diagnostics() models.ModelDiagnostics
}

// Input is everything needed to decorate one symbol's forecast.
// History is daily and newest first; Intraday is the current session bar when a live feed has one.
type Input struct {
	Symbol    string
	History   []models.PriceBar
	Intraday  *models.PriceBar
	Model     Forecaster
	Synthetic bool
}

type Engine struct {
	session *util.Session
}

func NewEngine(session *util.Session) *Engine {
	if session == nil {
		session = util.NewSession(nil, nil)
	}
	return &Engine{session: session}
}

// anchor picks the bar the forecast starts from and the history it is evaluated on.
// A live intraday bar newer than the last daily bar is placed in front of the daily history.
func (e *Engine) anchor(in Input, open bool) (models.PriceBar, []models.PriceBar) {
	latest := in.History[0]
	if open && in.Intraday != nil && in.Intraday.Valid() && in.Intraday.Date.After(latest.Date) {
		history := make([]models.PriceBar, 0, len(in.History)+1)
		history = append(history, *in.Intraday)
		history = append(history, in.History...)
		return *in.Intraday, history
	}
	return latest, in.History
}

// Build assembles an unranked forecast record.
func (e *Engine) Build(in Input) (models.ForecastRecord, error) {
	if len(in.History) == 0 || in.Model == nil {
		return models.ForecastRecord{}, ErrEmptyHistory
	}
	now := e.session.Now()
	open := e.session.IsOpen(now)
	latest, history := e.anchor(in, open)

	pred := sanitize(in.Model.PredictAt(now, latest, history))
	if pred == 0 {
		pred = latest.Close
	}
	pct := PercentChange(pred, latest.Close)
	volPct := indicators.RangePercent(latest)

	hit, samples := in.Model.HitRate(in.History)
	conf := Confidence(hit, samples, LiveSignals{
		Live:            open,
		PercentChange:   pct,
		VolumeChangePct: volumeChange(latest, history),
		VolatilityPct:   volPct,
	})
	stop, take := RiskLevels(volPct, pct)

	session := models.SessionClosed
	if open {
		session = models.SessionOpen
	}
	return models.ForecastRecord{
		Symbol:         in.Symbol,
		AsOfDate:       latest.Date,
		GeneratedAt:    now.UTC(),
		Session:        session,
		LastClose:      latest.Close,
		PredictedClose: pred,
		PercentChange:  pct,
		Sentiment:      SentimentFor(pct),
		Recommendation: Recommend(conf, pct),
		Confidence:     conf,
		StopLossPct:    stop,
		TakeProfitPct:  take,
		IsSynthetic:    in.Synthetic,
	}, nil
}

// volumeChange compares latest against the previous session in history.
func volumeChange(latest models.PriceBar, history []models.PriceBar) float64 {
	if len(history) < 2 || history[1].Volume <= 0 {
		return 0
	}
	prev := float64(history[1].Volume)
	return sanitize((float64(latest.Volume) - prev) / prev * 100)
}
