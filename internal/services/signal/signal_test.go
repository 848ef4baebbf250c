package signal

import (
	"math"
	"testing"

	"StockCast/internal/domain/models"
)

func TestPercentChange(t *testing.T) {
	if got := PercentChange(105, 100); math.Abs(got-5) > 1e-12 {
		t.Fatalf("PercentChange = %v, want 5", got)
	}
	if got := PercentChange(105, 0); got != 0 {
		t.Fatalf("zero last close = %v, want 0", got)
	}
}

func TestSentimentFor(t *testing.T) {
	cases := map[float64]models.Sentiment{
		2.5:  models.SentimentVeryBullish,
		2:    models.SentimentBullish,
		0.6:  models.SentimentBullish,
		0.5:  models.SentimentNeutral,
		0:    models.SentimentNeutral,
		-0.5: models.SentimentNeutral,
		-1:   models.SentimentBearish,
		-2:   models.SentimentBearish,
		-2.1: models.SentimentVeryBearish,
	}
	for pct, want := range cases {
		if got := SentimentFor(pct); got != want {
			t.Errorf("SentimentFor(%v) = %q, want %q", pct, got, want)
		}
	}
}

func TestConfidence(t *testing.T) {
	if got := Confidence(1, 0, LiveSignals{}); got != 0 {
		t.Fatalf("no samples = %v, want 0", got)
	}
	if got := Confidence(1, 1, LiveSignals{Live: true, PercentChange: 10}); got != 0 {
		t.Fatalf("one sample = %v, want 0", got)
	}
	if got := Confidence(0.65, 20, LiveSignals{}); got != 0.65 {
		t.Fatalf("closed session = %v, want hit rate", got)
	}
	live := LiveSignals{Live: true, PercentChange: -2.5, VolumeChangePct: 25, VolatilityPct: 5}
	if got := Confidence(0.8, 20, live); math.Abs(got-0.65) > 1e-12 {
		t.Fatalf("live blend = %v, want 0.65", got)
	}
	extreme := LiveSignals{Live: true, PercentChange: 1e9, VolumeChangePct: -1e9, VolatilityPct: -50}
	if got := Confidence(3, 20, extreme); got != 1 {
		t.Fatalf("clamped blend = %v, want 1", got)
	}
	if got := Confidence(math.NaN(), 20, LiveSignals{Live: true, VolatilityPct: math.NaN()}); math.IsNaN(got) || got < 0 || got > 1 {
		t.Fatalf("NaN inputs produced %v", got)
	}
}

func TestRecommend(t *testing.T) {
	cases := []struct {
		conf, pct float64
		want      models.Recommendation
	}{
		{0.49, 5, models.RecommendHold},
		{0.8, 2.5, models.RecommendStrongBuy},
		{0.8, -2.5, models.RecommendStrongSell},
		{0.7, 2.5, models.RecommendBuy},
		{0.6, -1.5, models.RecommendSell},
		{0.9, 1, models.RecommendHold},
		{0.9, 0.2, models.RecommendHold},
	}
	for _, tc := range cases {
		if got := Recommend(tc.conf, tc.pct); got != tc.want {
			t.Errorf("Recommend(%v, %v) = %q, want %q", tc.conf, tc.pct, got, tc.want)
		}
	}
}

func TestRiskLevels(t *testing.T) {
	stop, take := RiskLevels(1, 0.5)
	if stop != 2 || take != 3 {
		t.Fatalf("low volatility = (%v, %v), want (2, 3)", stop, take)
	}
	stop, take = RiskLevels(10, -9)
	if stop != 5 || take != 9 {
		t.Fatalf("high volatility = (%v, %v), want (5, 9)", stop, take)
	}
}

func TestRank(t *testing.T) {
	recs := []models.ForecastRecord{
		{Symbol: "MSFT", PercentChange: 1},
		{Symbol: "AAPL", PercentChange: -3},
		{Symbol: "AMZN", PercentChange: 1},
		{Symbol: "NVDA", PercentChange: 0.2},
		{Symbol: "META", PercentChange: -1},
	}
	Rank(recs)
	want := []string{"AAPL", "AMZN", "META", "MSFT", "NVDA"}
	for i, r := range recs {
		if r.Symbol != want[i] || r.Rank != i+1 {
			t.Fatalf("position %d: got %s rank %d, want %s rank %d", i, r.Symbol, r.Rank, want[i], i+1)
		}
	}
}
