package indicators

import "StockCast/internal/domain/models"

const (
	SMAPeriod  = 20
	RSIPeriod  = 14
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// RequiredWindow is the longest lookback any feature needs.
const RequiredWindow = MACDSlow + MACDSignal

// SMA returns the mean of the trailing period closes ending at at.
// With too little history it returns the most recent close.
func SMA(closes []float64, at, period int) float64 {
	if len(closes) == 0 {
		return 0
	}
	if period <= 0 || at < period-1 || at >= len(closes) {
		return closes[len(closes)-1]
	}
	sum := 0.0
	for i := at - period + 1; i <= at; i++ {
		sum += closes[i]
	}
	return sum / float64(period)
}

// RSI maps trailing gains against losses onto [0,100].
// Insufficient history and a flat window both give the neutral 50.
func RSI(closes []float64, at, period int) float64 {
	if period <= 0 || at < period || at >= len(closes) {
		return 50
	}
	gains, losses := 0.0, 0.0
	for i := at - period + 1; i <= at; i++ {
		if i <= 0 {
			continue
		}
		diff := closes[i] - closes[i-1]
		if diff >= 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}
	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+gains/losses)
}

// EMA seeds with the mean of the trailing window and smooths forward to at.
// With too little history it returns the close at at.
func EMA(closes []float64, at, period int) float64 {
	if at < 0 || at >= len(closes) {
		return 0
	}
	if period <= 0 || at < period-1 {
		return closes[at]
	}
	ema := SMA(closes, at, period)
	k := 2.0 / float64(period+1)
	for i := at - period + 2; i <= at; i++ {
		ema = (closes[i]-ema)*k + ema
	}
	return ema
}

// MACD returns the MACD line and its signal line at at, or (0,0) before the slow EMA exists.
func MACD(closes []float64, at int) (macd, signal float64) {
	if at < MACDSlow || at >= len(closes) {
		return 0, 0
	}
	macd = EMA(closes, at, MACDFast) - EMA(closes, at, MACDSlow)

	series := make([]float64, 0, MACDSignal)
	start := at - MACDSignal + 1
	if start < 0 {
		start = 0
	}
	for i := start; i <= at; i++ {
		if i < MACDSlow {
			continue
		}
		series = append(series, EMA(closes, i, MACDFast)-EMA(closes, i, MACDSlow))
	}
	return macd, emaOfSeries(series, MACDSignal)
}

func emaOfSeries(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	n := period
	if len(values) < n {
		n = len(values)
	}
	ema := 0.0
	for i := 0; i < n; i++ {
		ema += values[i]
	}
	ema /= float64(n)
	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*k + ema
	}
	return ema
}

// Features builds the regression input for ascending bars at index at.
func Features(bars []models.PriceBar, at int) models.FeatureVector {
	return FeaturesFor(bars[at], models.Closes(bars), at)
}

// FeaturesFor combines an explicit bar with indicators computed on closes at index at.
// The bar may be a projection that is not part of closes.
func FeaturesFor(bar models.PriceBar, closes []float64, at int) models.FeatureVector {
	macd, signal := MACD(closes, at)
	return models.FeatureVector{
		Open:   bar.Open,
		High:   bar.High,
		Low:    bar.Low,
		Close:  bar.Close,
		Volume: float64(bar.Volume),
		SMA:    SMA(closes, at, SMAPeriod),
		RSI:    RSI(closes, at, RSIPeriod),
		MACD:   macd,
		Signal: signal,
	}
}
