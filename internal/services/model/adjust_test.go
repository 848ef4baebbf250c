package model

import (
	"math"
	"testing"

	"StockCast/internal/domain/models"
)

func neutralFeatures(close float64) models.FeatureVector {
	return models.FeatureVector{Close: close, SMA: close, RSI: 50}
}

func TestSentimentAdjustment(t *testing.T) {
	bearish := models.FeatureVector{RSI: 75, MACD: -1, Signal: 0, Close: 99, SMA: 100}
	if got := SentimentAdjustment(bearish, false); math.Abs(got+0.045) > 1e-12 {
		t.Fatalf("closed bearish tilt = %v, want -0.045", got)
	}
	if got := SentimentAdjustment(bearish, true); math.Abs(got+0.065) > 1e-12 {
		t.Fatalf("open bearish tilt = %v, want -0.065", got)
	}
	bullish := models.FeatureVector{RSI: 25, MACD: 1, Signal: 0, Close: 101, SMA: 100}
	if got := SentimentAdjustment(bullish, false); math.Abs(got-0.045) > 1e-12 {
		t.Fatalf("closed bullish tilt = %v, want 0.045", got)
	}
	if got := SentimentAdjustment(neutralFeatures(100), true); got != 0 {
		t.Fatalf("neutral tilt = %v, want 0", got)
	}
}

func TestAdjustClosedClampsToFivePercent(t *testing.T) {
	bar := models.PriceBar{Open: 100, High: 100, Low: 100, Close: 100}
	got := Adjust(110, neutralFeatures(100), bar, false, 0)
	if math.Abs(got-105) > 1e-9 {
		t.Fatalf("closed adjust = %v, want 105", got)
	}
	got = Adjust(80, neutralFeatures(100), bar, false, 0)
	if math.Abs(got-95) > 1e-9 {
		t.Fatalf("closed adjust = %v, want 95", got)
	}
}

func TestAdjustOpenScalesByRemainingTime(t *testing.T) {
	flat := models.PriceBar{Open: 100, High: 100, Low: 100, Close: 100}
	if got := Adjust(110, neutralFeatures(100), flat, true, 0.5); math.Abs(got-105) > 1e-9 {
		t.Fatalf("half session = %v, want 105", got)
	}
	// vol = (102-98)/100, move = 1 * 1 * (1 + 0.08)
	ranged := models.PriceBar{Open: 100, High: 102, Low: 98, Close: 100}
	if got := Adjust(101, neutralFeatures(100), ranged, true, 1); math.Abs(got-101.08) > 1e-9 {
		t.Fatalf("full session = %v, want 101.08", got)
	}
	if got := Adjust(200, neutralFeatures(100), flat, true, 1); math.Abs(got-115) > 1e-9 {
		t.Fatalf("open cap = %v, want 115", got)
	}
}

func TestAdjustNonFiniteFallsBack(t *testing.T) {
	bar := models.PriceBar{Open: 50, High: 51, Low: 49, Close: 50}
	for _, raw := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := Adjust(raw, neutralFeatures(50), bar, false, 0); got != 50 {
			t.Fatalf("Adjust(%v) = %v, want 50", raw, got)
		}
	}
}
