package signal

import (
	"math"
	"sort"

	"StockCast/internal/domain/models"
)

// Rank orders records by absolute percent change, largest first, breaking ties by symbol,
// and assigns dense 1-based ranks in place.
func Rank(records []models.ForecastRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ai, aj := math.Abs(records[i].PercentChange), math.Abs(records[j].PercentChange)
		if ai != aj {
			return ai > aj
		}
		return records[i].Symbol < records[j].Symbol
	})
	for i := range records {
		records[i].Rank = i + 1
	}
}
