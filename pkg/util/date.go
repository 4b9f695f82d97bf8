package util

import (
	"strconv"
	"strings"
	"time"
)

// TesterDateLayout is the date format of tester configuration files.
const TesterDateLayout = "2006.01.02"

// ParseTime tries tester dates, RFC3339, RFC3339Nano, ISO dates and unix seconds.
// Results without a zone are UTC. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{TesterDateLayout, "2006.01.02 15:04", "2006.01.02 15:04:05", time.RFC3339, time.RFC3339Nano, time.DateOnly, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// FormatTesterDate renders t as YYYY.MM.DD in UTC.
func FormatTesterDate(t time.Time) string {
	return t.UTC().Format(TesterDateLayout)
}
