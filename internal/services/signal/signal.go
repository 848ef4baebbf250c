package signal

import (
	"math"

	"StockCast/internal/domain/models"
)

// LiveSignals are the intraday inputs blended into confidence while the session is open.
type LiveSignals struct {
	Live            bool
	PercentChange   float64
	VolumeChangePct float64
	VolatilityPct   float64
}

// PercentChange is (pred-last)/last*100, or 0 for a non-positive last close.
func PercentChange(pred, last float64) float64 {
	if last <= 0 {
		return 0
	}
	return sanitize((pred - last) / last * 100)
}

// SentimentFor buckets a percent change.
func SentimentFor(pct float64) models.Sentiment {
	switch {
	case pct > 2:
		return models.SentimentVeryBullish
	case pct > 0.5:
		return models.SentimentBullish
	case pct < -2:
		return models.SentimentVeryBearish
	case pct < -0.5:
		return models.SentimentBearish
	}
	return models.SentimentNeutral
}

// Confidence blends the model's directional hit rate with the live trend, volume and
// volatility strengths. Fewer than two scored predictions give 0.
func Confidence(hitRate float64, samples int, live LiveSignals) float64 {
	if samples < 2 {
		return 0
	}
	hitRate = clamp01(hitRate)
	if !live.Live {
		return hitRate
	}
	trend := clamp01(math.Abs(live.PercentChange) / 5)
	volume := clamp01(math.Abs(live.VolumeChangePct) / 50)
	invVol := clamp01(1 - live.VolatilityPct/10)
	return clamp01(0.5*hitRate + 0.5*(0.5*trend+0.3*volume+0.2*invVol))
}

// Recommend maps confidence and expected return to a label.
func Recommend(confidence, pct float64) models.Recommendation {
	if confidence < 0.5 {
		return models.RecommendHold
	}
	abs := math.Abs(pct)
	switch {
	case abs > 2 && confidence > 0.7:
		if pct > 0 {
			return models.RecommendStrongBuy
		}
		return models.RecommendStrongSell
	case abs > 1:
		if pct > 0 {
			return models.RecommendBuy
		}
		return models.RecommendSell
	}
	return models.RecommendHold
}

// RiskLevels returns stop-loss and take-profit percentages.
func RiskLevels(volatilityPct, pct float64) (stopLoss, takeProfit float64) {
	stopLoss = math.Max(2, sanitize(volatilityPct)*0.5)
	takeProfit = math.Max(1.5*stopLoss, math.Abs(sanitize(pct)))
	return stopLoss, takeProfit
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
