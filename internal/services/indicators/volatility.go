package indicators

import (
	"math"

	"StockCast/internal/domain/models"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// LogReturns computes r_t = ln(C_t / C_{t-1}) over ascending bars.
// It returns nil when there are fewer than two bars.
func LogReturns(bars []models.PriceBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility is the annualized sample deviation of the last window returns.
func RealizedVolatility(logReturns []float64, window int) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum, sum2 := 0.0, 0.0
	for _, r := range logReturns[len(logReturns)-window:] {
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * TradingDaysPerYear)
}

// RangeRatio is (high-low)/base, or 0 for a non-positive base.
func RangeRatio(high, low, base float64) float64 {
	if base <= 0 || high < low {
		return 0
	}
	return (high - low) / base
}

// RangePercent is the session range as a percentage of the open.
func RangePercent(b models.PriceBar) float64 {
	return RangeRatio(b.High, b.Low, b.Open) * 100
}
