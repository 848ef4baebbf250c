package alphavantage

import (
	"encoding/json"
	"fmt"
	"strings"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
)

// ParseDaily decodes a daily time-series response. The error field wins over a rate-limit
// notice, which wins over a missing series.
func ParseDaily(symbol string, raw []byte) (*models.DailySeries, error) {
	var payload models.DailyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", drepo.ErrUpstreamUnavailable, symbol, err)
	}

	switch {
	case payload.Error != "":
		return nil, fmt.Errorf("%w: %s: %s", drepo.ErrUpstreamUnavailable, symbol, payload.Error)
	case payload.Note != "":
		return nil, fmt.Errorf("%w: %s: %s", drepo.ErrRateLimited, symbol, payload.Note)
	case payload.Information != "":
		if isRateLimitNotice(payload.Information) {
			return nil, fmt.Errorf("%w: %s: %s", drepo.ErrRateLimited, symbol, payload.Information)
		}
		return nil, fmt.Errorf("%w: %s: %s", drepo.ErrUpstreamUnavailable, symbol, payload.Information)
	case len(payload.Series) == 0:
		return nil, fmt.Errorf("%w: %s: missing %q", drepo.ErrUpstreamUnavailable, symbol, models.SeriesKeyDaily)
	}

	bars := make([]models.PriceBar, 0, len(payload.Series))
	for _, day := range payload.SortedDays() {
		bar, err := payload.Series[day].Bar(day)
		if err != nil || !bar.Valid() {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s: no valid bars", drepo.ErrUpstreamUnavailable, symbol)
	}
	models.SortNewestFirst(bars)

	return &models.DailySeries{Symbol: strings.ToUpper(symbol), Bars: bars, Raw: raw}, nil
}

func isRateLimitNotice(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "rate limit") || strings.Contains(m, "call frequency")
}
