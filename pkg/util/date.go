package util

import (
	"math"
	"strconv"
	"time"
)

// secondsCutoff separates epoch seconds from epoch milliseconds. Values below
// it are treated as seconds (it is year 5138 in seconds, 1973 in millis).
const secondsCutoff = 1e11

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.UnixMilli(EpochMillis(float64(ts))), true
	}
	return time.Time{}, false
}

// EpochMillis converts an epoch timestamp in seconds or milliseconds to milliseconds.
func EpochMillis(v float64) int64 {
	if math.Abs(v) < secondsCutoff {
		return int64(math.Round(v * 1000))
	}
	return int64(math.Round(v))
}

// ParseMillis converts a numeric or RFC3339 time string to epoch milliseconds.
func ParseMillis(s string) (int64, bool) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return 0, false
		}
		return EpochMillis(f), true
	}
	t, ok := ParseTime(s)
	if !ok {
		return 0, false
	}
	return t.UnixMilli(), true
}

// FormatMillis renders epoch millis as UTC RFC3339.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
