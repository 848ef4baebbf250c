// Package intraday folds live trades into the current session bar per symbol.
package intraday

import (
	"strings"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/util"
)

// Tracker keeps one in-progress bar per symbol for the current trading date.
type Tracker struct {
	session *util.Session

	mu   sync.RWMutex
	bars map[string]*models.PriceBar
	last map[string]int64
}

func NewTracker(session *util.Session) *Tracker {
	if session == nil {
		session = util.NewSession(nil, nil)
	}
	return &Tracker{
		session: session,
		bars:    make(map[string]*models.PriceBar),
		last:    make(map[string]int64),
	}
}

// Apply folds a trade into its symbol's bar. Trades outside the regular session,
// or from an earlier date than the bar in progress, are ignored.
func (t *Tracker) Apply(tr *models.Trade) bool {
	if tr == nil || tr.Symbol == "" || tr.Price <= 0 || tr.Timestamp <= 0 {
		return false
	}
	at := time.UnixMilli(tr.Timestamp)
	if !t.session.IsOpen(at) {
		return false
	}
	day := t.session.TradingDate(at)
	sym := strings.ToUpper(tr.Symbol)

	t.mu.Lock()
	defer t.mu.Unlock()
	bar, ok := t.bars[sym]
	switch {
	case !ok || day.After(bar.Date):
		bar = &models.PriceBar{Date: day, Open: tr.Price, High: tr.Price, Low: tr.Price}
		t.bars[sym] = bar
		t.last[sym] = 0
	case day.Before(bar.Date):
		return false
	}
	if tr.Price > bar.High {
		bar.High = tr.Price
	}
	if tr.Price < bar.Low {
		bar.Low = tr.Price
	}
	// out-of-order prints still count toward range and volume but not the close
	if tr.Timestamp >= t.last[sym] {
		bar.Close = tr.Price
		t.last[sym] = tr.Timestamp
	}
	bar.Volume += int64(tr.Volume)
	return true
}

// Bar returns a copy of today's bar for symbol, or nil when there is none for the current date.
func (t *Tracker) Bar(symbol string) *models.PriceBar {
	today := t.session.TradingDate(t.session.Now())
	t.mu.RLock()
	defer t.mu.RUnlock()
	bar, ok := t.bars[strings.ToUpper(symbol)]
	if !ok || !bar.Date.Equal(today) {
		return nil
	}
	cp := *bar
	return &cp
}

// Reset drops every bar, e.g. after a stream gap long enough to make them misleading.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.bars = make(map[string]*models.PriceBar)
	t.last = make(map[string]int64)
	t.mu.Unlock()
}

// Symbols returns how many symbols have a bar in progress.
func (t *Tracker) Symbols() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.bars)
}
