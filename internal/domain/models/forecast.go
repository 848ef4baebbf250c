package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeatureVector is derived from a price series at one index.
// It is never stored on its own.
type FeatureVector struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	SMA    float64
	RSI    float64
	MACD   float64
	Signal float64
}

// Values returns the regression input in a fixed column order.
func (f FeatureVector) Values() []float64 {
	return []float64{f.Open, f.High, f.Low, f.Close, f.Volume, f.SMA, f.RSI, f.MACD, f.Signal}
}

type Sentiment string

const (
	SentimentVeryBullish Sentiment = "very bullish"
	SentimentBullish     Sentiment = "bullish"
	SentimentNeutral     Sentiment = "neutral"
	SentimentBearish     Sentiment = "bearish"
	SentimentVeryBearish Sentiment = "very bearish"
)

type Recommendation string

const (
	RecommendStrongBuy    Recommendation = "Strong Buy"
	RecommendBuy          Recommendation = "Buy"
	RecommendConsiderBuy  Recommendation = "Consider Buy"
	RecommendHold         Recommendation = "Hold"
	RecommendConsiderSell Recommendation = "Consider Sell"
	RecommendSell         Recommendation = "Sell"
	RecommendStrongSell   Recommendation = "Strong Sell"
)

const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// ForecastRecord is the decorated forecast for one symbol at one point in time.
type ForecastRecord struct {
	Symbol         string         `json:"symbol"`
	AsOfDate       time.Time      `json:"as_of_date"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Session        string         `json:"session"`
	LastClose      float64        `json:"last_close"`
	PredictedClose float64        `json:"predicted_close"`
	PercentChange  float64        `json:"percent_change"`
	Sentiment      Sentiment      `json:"sentiment"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	StopLossPct    float64        `json:"stop_loss_pct"`
	TakeProfitPct  float64        `json:"take_profit_pct"`
	Rank           int            `json:"rank"`
	IsSynthetic    bool           `json:"is_synthetic"`
}

// Document flattens the record into a key/value map with prices rounded to cents.
func (r ForecastRecord) Document() map[string]interface{} {
	return map[string]interface{}{
		"symbol":          r.Symbol,
		"as_of_date":      r.AsOfDate.Format(DateLayout),
		"generated_at":    r.GeneratedAt.UTC().Format(time.RFC3339),
		"session":         r.Session,
		"last_close":      round(r.LastClose, 2),
		"predicted_close": round(r.PredictedClose, 2),
		"percent_change":  round(r.PercentChange, 4),
		"sentiment":       string(r.Sentiment),
		"recommendation":  string(r.Recommendation),
		"confidence":      round(r.Confidence, 4),
		"stop_loss_pct":   round(r.StopLossPct, 2),
		"take_profit_pct": round(r.TakeProfitPct, 2),
		"rank":            r.Rank,
		"is_synthetic":    r.IsSynthetic,
	}
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// ProjectedBar is a predicted session used by the outlook.
type ProjectedBar struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// TradingSignals are the position-sizing hints attached to an outlook.
type TradingSignals struct {
	VolumeAlert             bool           `json:"volume_alert"`
	VolatilityAlert         bool           `json:"volatility_alert"`
	TrendStrength           float64        `json:"trend_strength"`
	OverallConfidence       float64        `json:"overall_confidence"`
	RecommendedPositionSize float64        `json:"recommended_position_size"`
	StopLossPct             float64        `json:"stop_loss_pct"`
	TakeProfitPct           float64        `json:"take_profit_pct"`
	RiskRewardRatio         float64        `json:"risk_reward_ratio"`
	Recommendation          Recommendation `json:"recommendation"`
}

// ModelDiagnostics summarizes the cross-validation of the trained model.
type ModelDiagnostics struct {
	State       string  `json:"state"`
	Instances   int     `json:"instances"`
	Folds       int     `json:"folds"`
	Correlation float64 `json:"correlation"`
	MAE         float64 `json:"mae"`
	RMSE        float64 `json:"rmse"`
}

// Outlook is the two-session projection for one symbol.
type Outlook struct {
	Symbol          string           `json:"symbol"`
	AsOfDate        time.Time        `json:"as_of_date"`
	IsSynthetic     bool             `json:"is_synthetic"`
	Last            PriceBar         `json:"last"`
	Today           ProjectedBar     `json:"today"`
	TodayChange     float64          `json:"today_change"`
	TodayVolatility float64          `json:"today_volatility"`
	RealizedVol     float64          `json:"annualized_volatility"`
	VolumeChange    float64          `json:"volume_change"`
	CurrentPrice    float64          `json:"current_price"`
	TomorrowPrice   float64          `json:"tomorrow_price"`
	TomorrowChange  float64          `json:"tomorrow_change"`
	MarketSentiment string           `json:"market_sentiment"`
	Signals         TradingSignals   `json:"trading_signals"`
	Model           ModelDiagnostics `json:"model"`
}

// CycleSummary reports one universe refresh.
type CycleSummary struct {
	CycleID   string        `json:"cycle_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Resolved  []string      `json:"resolved"`
	Synthetic []string      `json:"synthetic"`
	Missing   []string      `json:"missing"`
	TimedOut  bool          `json:"timed_out"`
}
