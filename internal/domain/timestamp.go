package domain

import (
	"time"
)

// unix values at or above this are treated as milliseconds.
const millisThreshold = 1e12

// ParseTimestamp canonicalizes the timestamp shapes the store backends and
// older clients have written: time.Time, RFC3339 strings, unix seconds or
// milliseconds, and {seconds, nanos} maps. Anything else yields the zero time
// and false.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		if t == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case int:
		return fromUnix(float64(t))
	case int64:
		return fromUnix(float64(t))
	case float64:
		return fromUnix(t)
	case map[string]any:
		secs, ok := numeric(t["seconds"])
		if !ok {
			secs, ok = numeric(t["_seconds"])
		}
		if !ok {
			return time.Time{}, false
		}
		nanos, _ := numeric(t["nanos"])
		if nanos == 0 {
			nanos, _ = numeric(t["nanoseconds"])
		}
		return time.Unix(int64(secs), int64(nanos)).UTC(), true
	}
	return time.Time{}, false
}

func fromUnix(v float64) (time.Time, bool) {
	if v <= 0 {
		return time.Time{}, false
	}
	if v >= millisThreshold {
		return time.UnixMilli(int64(v)).UTC(), true
	}
	return time.Unix(int64(v), 0).UTC(), true
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
