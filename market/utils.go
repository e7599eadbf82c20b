package market

import (
	"fmt"
	"strings"
	"time"
)

// Layouts without zone information. Anything parsed with these is taken
// to be UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp and normalizes it to UTC.
// Zoned forms ("Z" or "+02:00") are converted; naive forms are assumed UTC.
func ParseTimestamp(s string) (time.Time, error) {
	ts := strings.TrimSpace(s)
	if ts == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	// Accept RFC3339 or RFC3339Nano.
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q: not ISO-8601", s)
}

// FormatTimestamp renders t as RFC3339 in UTC, the wire format for every
// timestamp this module emits.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// DayKey returns the calendar date of t in loc as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

// TFStringToSeconds maps a timeframe string such as "M15" or "H1" to
// seconds.
func TFStringToSeconds(tf string) (int32, error) {
	switch strings.ToUpper(strings.TrimSpace(tf)) {
	case "M1":
		return 60, nil
	case "M5":
		return 300, nil
	case "M15":
		return 900, nil
	case "M30":
		return 1800, nil
	case "H1":
		return 3600, nil
	case "H4":
		return 14400, nil
	case "D1":
		return 86400, nil
	case "W1":
		return 604800, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe string: %s", tf)
	}
}

// Timeframe converts a timeframe string such as "H1" or "D1" into the bar
// spacing used for synthetic timestamps.
func Timeframe(tf string) (time.Duration, error) {
	sec, err := TFStringToSeconds(tf)
	if err != nil {
		return 0, err
	}
	return time.Duration(sec) * time.Second, nil
}

// ParseInterval reads a bar spacing given either as a timeframe ("H1",
// "D1") or as a Go duration ("90m", "24h").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := Timeframe(s); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("interval %q is neither a timeframe nor a duration", s)
	}
	return d, nil
}
