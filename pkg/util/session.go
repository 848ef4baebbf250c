package util

import "time"

// US equity regular session, exchange local time.
const (
	SessionOpenHour    = 9
	SessionOpenMinute  = 30
	SessionCloseHour   = 16
	SessionCloseMinute = 0

	// SessionMinutes is the length of a full regular session.
	SessionMinutes = (SessionCloseHour*60 + SessionCloseMinute) - (SessionOpenHour*60 + SessionOpenMinute)
)

// NewYork returns the exchange time zone. Without zone data it falls back to a fixed EST offset.
func NewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// Session answers open/closed questions for a fixed daily trading window.
type Session struct {
	loc *time.Location
	now func() time.Time
}

// NewSession builds a session calendar in loc (New York when nil) using now as the clock.
func NewSession(loc *time.Location, now func() time.Time) *Session {
	if loc == nil {
		loc = NewYork()
	}
	if now == nil {
		now = time.Now
	}
	return &Session{loc: loc, now: now}
}

// Location returns the exchange time zone.
func (s *Session) Location() *time.Location { return s.loc }

// Now returns the current time in the exchange zone.
func (s *Session) Now() time.Time { return s.now().In(s.loc) }

// IsOpen reports whether t falls inside the regular session on a weekday.
func (s *Session) IsOpen(t time.Time) bool {
	local := t.In(s.loc)
	if !IsWeekday(local) {
		return false
	}
	m := local.Hour()*60 + local.Minute()
	return m >= SessionOpenHour*60+SessionOpenMinute && m < SessionCloseHour*60+SessionCloseMinute
}

// OpenNow is IsOpen at the session clock.
func (s *Session) OpenNow() bool { return s.IsOpen(s.now()) }

// RemainingFraction is the share of the session still to trade at t:
// 1 before the open, 0 after the close.
func (s *Session) RemainingFraction(t time.Time) float64 {
	local := t.In(s.loc)
	m := local.Hour()*60 + local.Minute()
	open := SessionOpenHour*60 + SessionOpenMinute
	closeAt := SessionCloseHour*60 + SessionCloseMinute
	switch {
	case m < open:
		return 1
	case m >= closeAt:
		return 0
	}
	return float64(closeAt-m) / float64(SessionMinutes)
}

// TradingDate returns t's exchange calendar date at midnight UTC.
func (s *Session) TradingDate(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWeekday returns true if t is Mon-Fri in its own location.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// PreviousWeekday steps back from day until it lands on a weekday, excluding day itself.
func PreviousWeekday(day time.Time) time.Time {
	d := day.AddDate(0, 0, -1)
	for !IsWeekday(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
