package models

import (
	"sort"
	"time"

	"StockCast/pkg/util"
)

// DateLayout is the calendar-date format used by the upstream series and the mirrors.
const DateLayout = util.DateLayout

// PriceBar is one trading session for a symbol.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Valid reports whether the bar has positive prices and a non-negative volume.
func (b PriceBar) Valid() bool {
	return b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 && b.Volume >= 0 && !b.Date.IsZero()
}

// DailySeries is a parsed upstream response.
// Bars are ordered newest first; Raw keeps the payload for the durable mirror.
type DailySeries struct {
	Symbol string
	Bars   []PriceBar
	Raw    []byte
}

// SortNewestFirst orders bars by date descending in place.
func SortNewestFirst(bars []PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.After(bars[j].Date) })
}

// Ascending returns a copy of a newest-first sequence in chronological order.
func Ascending(newestFirst []PriceBar) []PriceBar {
	out := make([]PriceBar, len(newestFirst))
	for i, b := range newestFirst {
		out[len(newestFirst)-1-i] = b
	}
	return out
}

// Closes extracts close prices in the order given.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func parseDay(s string) (time.Time, error) {
	return util.ParseDate(s)
}
