package acquisition

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/util"
)

const (
	syntheticMinPrice  = 100.0
	syntheticMaxPrice  = 1000.0
	syntheticDailySD   = 0.0125
	syntheticGapSD     = 0.004
	syntheticWickSD    = 0.006
	syntheticMinVolume = 100_000
	syntheticMaxVolume = 1_000_000
)

// SymbolSeed derives a stable per-symbol seed.
func SymbolSeed(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToUpper(symbol)))
	return int64(h.Sum64() & math.MaxInt64)
}

// GenerateSynthetic produces n weekday sessions ending at asOf (or the weekday before it),
// newest first. The same symbol, n, seed and asOf always give the same bars.
func GenerateSynthetic(symbol string, n int, seed int64, asOf time.Time) []models.PriceBar {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed ^ SymbolSeed(symbol)))

	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	if !util.IsWeekday(day) {
		day = util.PreviousWeekday(day)
	}
	days := make([]time.Time, n)
	for i := n - 1; i >= 0; i-- {
		days[i] = day
		day = util.PreviousWeekday(day)
	}

	price := syntheticMinPrice + rng.Float64()*(syntheticMaxPrice-syntheticMinPrice)
	bars := make([]models.PriceBar, n)
	for i := 0; i < n; i++ {
		open := price * (1 + rng.NormFloat64()*syntheticGapSD)
		closeP := open * (1 + rng.NormFloat64()*syntheticDailySD)
		if closeP < 1 {
			closeP = 1
		}
		if open < 1 {
			open = 1
		}
		high := math.Max(open, closeP) * (1 + math.Abs(rng.NormFloat64())*syntheticWickSD)
		low := math.Min(open, closeP) * (1 - math.Abs(rng.NormFloat64())*syntheticWickSD)
		bars[n-1-i] = models.PriceBar{
			Date:   days[i],
			Open:   roundCents(open),
			High:   roundCents(high),
			Low:    roundCents(low),
			Close:  roundCents(closeP),
			Volume: syntheticMinVolume + rng.Int63n(syntheticMaxVolume-syntheticMinVolume),
		}
		price = closeP
	}
	return bars
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
