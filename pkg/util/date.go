package util

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used by daily series.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD key into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// ParseSymbols splits a comma separated list, upper-cases entries and drops blanks and duplicates.
func ParseSymbols(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		sym := strings.ToUpper(strings.TrimSpace(part))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
