package signal

import (
	"math"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/indicators"
)

const (
	maxPositionSize  = 0.1
	volumeAlertPct   = 20
	volatilityAlert  = 5
	realizedVolRange = 20
)

// Outlook projects today's session from the forecast and chains a second forecast
// from that projected bar.
func (e *Engine) Outlook(in Input) (models.Outlook, error) {
	if len(in.History) == 0 || in.Model == nil {
		return models.Outlook{}, ErrEmptyHistory
	}
	now := e.session.Now()
	latest, history := e.anchor(in, e.session.IsOpen(now))

	todayClose := sanitize(in.Model.PredictAt(now, latest, history))
	if todayClose == 0 {
		todayClose = latest.Close
	}
	today := models.ProjectedBar{
		Open:   todayClose * 0.9995,
		High:   todayClose * 1.01,
		Low:    todayClose * 0.99,
		Close:  todayClose,
		Volume: float64(latest.Volume) * 1.05,
	}
	projected := models.PriceBar{
		Date:   latest.Date,
		Open:   today.Open,
		High:   today.High,
		Low:    today.Low,
		Close:  today.Close,
		Volume: int64(math.Round(today.Volume)),
	}
	tomorrow := sanitize(in.Model.PredictAt(now, projected, history))
	if tomorrow == 0 {
		tomorrow = todayClose
	}

	todayChange := PercentChange(todayClose, latest.Close)
	tomorrowChange := PercentChange(tomorrow, todayClose)
	todayVol := indicators.RangePercent(projected)
	volChange := 0.0
	if latest.Volume > 0 {
		volChange = sanitize((today.Volume - float64(latest.Volume)) / float64(latest.Volume) * 100)
	}

	bullish := todayChange > 0 && tomorrowChange > 0
	bearish := todayChange < 0 && tomorrowChange < 0
	sentiment := "Neutral"
	switch {
	case bullish:
		sentiment = "Bullish"
	case bearish:
		sentiment = "Bearish"
	}

	trend := clamp01(math.Abs(tomorrowChange) / 5)
	volume := clamp01(math.Abs(volChange) / 50)
	invVol := clamp01(1 - todayVol/10)
	overall := clamp01(0.5*trend + 0.3*volume + 0.2*invVol)
	stop, take := RiskLevels(todayVol, tomorrowChange)

	asc := models.Ascending(in.History)
	return models.Outlook{
		Symbol:          in.Symbol,
		AsOfDate:        latest.Date,
		IsSynthetic:     in.Synthetic,
		Last:            latest,
		Today:           today,
		TodayChange:     todayChange,
		TodayVolatility: todayVol,
		RealizedVol:     sanitize(indicators.RealizedVolatility(indicators.LogReturns(asc), realizedVolRange)),
		VolumeChange:    volChange,
		CurrentPrice:    today.High*0.6 + today.Low*0.4,
		TomorrowPrice:   tomorrow,
		TomorrowChange:  tomorrowChange,
		MarketSentiment: sentiment,
		Signals: models.TradingSignals{
			VolumeAlert:             math.Abs(volChange) > volumeAlertPct,
			VolatilityAlert:         todayVol > volatilityAlert,
			TrendStrength:           math.Abs(todayChange),
			OverallConfidence:       overall,
			RecommendedPositionSize: maxPositionSize * overall,
			StopLossPct:             stop,
			TakeProfitPct:           take,
			RiskRewardRatio:         take / stop,
			Recommendation:          outlookRecommendation(bullish, bearish, overall),
		},
		Model: in.Model.Diagnostics(),
	}, nil
}

func outlookRecommendation(bullish, bearish bool, confidence float64) models.Recommendation {
	switch {
	case bullish && confidence > 0.6:
		return models.RecommendStrongBuy
	case bullish && confidence > 0.3:
		return models.RecommendConsiderBuy
	case bearish && confidence > 0.6:
		return models.RecommendStrongSell
	case bearish && confidence > 0.3:
		return models.RecommendConsiderSell
	}
	return models.RecommendHold
}
