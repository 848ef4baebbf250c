package model

import (
	"math"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/indicators"
)

// Deviation caps relative to the last close.
const (
	ClosedMaxDeviation = 0.05
	OpenMaxDeviation   = 0.15
)

type tilts struct {
	rsi, macd, trend float64
}

var (
	closedTilts = tilts{rsi: 0.02, macd: 0.015, trend: 0.01}
	openTilts   = tilts{rsi: 0.03, macd: 0.02, trend: 0.015}
)

// SentimentAdjustment sums the indicator tilts for the latest feature vector.
func SentimentAdjustment(f models.FeatureVector, open bool) float64 {
	t := closedTilts
	if open {
		t = openTilts
	}
	adj := 0.0
	switch {
	case f.RSI > 70:
		adj -= t.rsi
	case f.RSI < 30:
		adj += t.rsi
	}
	switch {
	case f.MACD > f.Signal:
		adj += t.macd
	case f.MACD < f.Signal:
		adj -= t.macd
	}
	switch {
	case f.Close > f.SMA:
		adj += t.trend
	case f.Close < f.SMA:
		adj -= t.trend
	}
	return adj
}

// Adjust turns a raw regression estimate into the bounded forecast.
// remaining is the fraction of the session left to trade and only matters while open.
func Adjust(raw float64, f models.FeatureVector, latest models.PriceBar, open bool, remaining float64) float64 {
	last := latest.Close
	if last <= 0 || !finite(raw) {
		return last
	}
	adjusted := raw * (1 + SentimentAdjustment(f, open))

	var final, maxDev float64
	if open {
		vol := indicators.RangeRatio(latest.High, latest.Low, latest.Open)
		move := (adjusted - last) * remaining * (1 + 2*vol)
		final, maxDev = last+move, OpenMaxDeviation
	} else {
		vol := indicators.RangeRatio(latest.High, latest.Low, last)
		move := (adjusted - last) * (1 + vol)
		final, maxDev = last+move, ClosedMaxDeviation
	}
	if !finite(final) {
		return last
	}
	return math.Min(math.Max(final, last*(1-maxDev)), last*(1+maxDev))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
