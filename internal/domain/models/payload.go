package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Field names of the upstream daily time-series document.
const (
	SeriesKeyDaily = "Time Series (Daily)"
	KeyMetaData    = "Meta Data"
	KeyError       = "Error Message"
	KeyNote        = "Note"
	KeyInformation = "Information"
)

// DailyPoint is one date entry of the upstream series; every value is a numeric string.
type DailyPoint struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// DailyPayload is the upstream daily document, including its error and notice fields.
type DailyPayload struct {
	Meta        map[string]string     `json:"Meta Data,omitempty"`
	Series      map[string]DailyPoint `json:"Time Series (Daily),omitempty"`
	Error       string                `json:"Error Message,omitempty"`
	Note        string                `json:"Note,omitempty"`
	Information string                `json:"Information,omitempty"`
}

// Bar converts the point into a PriceBar dated day.
func (p DailyPoint) Bar(day string) (PriceBar, error) {
	var bar PriceBar
	date, err := parseDay(day)
	if err != nil {
		return bar, err
	}
	fields := []struct {
		raw string
		dst *float64
	}{{p.Open, &bar.Open}, {p.High, &bar.High}, {p.Low, &bar.Low}, {p.Close, &bar.Close}}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return bar, fmt.Errorf("%s: %w", day, err)
		}
		*f.dst = d.InexactFloat64()
	}
	vol, err := decimal.NewFromString(p.Volume)
	if err != nil {
		return bar, fmt.Errorf("%s volume: %w", day, err)
	}
	bar.Date = date
	bar.Volume = vol.IntPart()
	return bar, nil
}

// EncodeDailyPayload renders bars in the upstream document shape.
func EncodeDailyPayload(symbol string, bars []PriceBar, info string) ([]byte, error) {
	series := make(map[string]DailyPoint, len(bars))
	var last string
	for _, b := range bars {
		day := b.Date.Format(DateLayout)
		series[day] = DailyPoint{
			Open:   decimal.NewFromFloat(b.Open).StringFixed(4),
			High:   decimal.NewFromFloat(b.High).StringFixed(4),
			Low:    decimal.NewFromFloat(b.Low).StringFixed(4),
			Close:  decimal.NewFromFloat(b.Close).StringFixed(4),
			Volume: decimal.NewFromInt(b.Volume).String(),
		}
		if day > last {
			last = day
		}
	}
	payload := DailyPayload{
		Meta: map[string]string{
			"1. Information":    info,
			"2. Symbol":         symbol,
			"3. Last Refreshed": last,
			"4. Output Size":    "Compact",
			"5. Time Zone":      "US/Eastern",
		},
		Series: series,
	}
	return json.MarshalIndent(payload, "", "    ")
}

// SortedDays returns the series keys newest first.
func (p DailyPayload) SortedDays() []string {
	days := make([]string, 0, len(p.Series))
	for d := range p.Series {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days
}
