package stream

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// instantLayouts are tried in order for textual bounds. Layouts without a
// zone are read as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseInstant normalises a time bound to a UTC instant.
//
// Accepted inputs are nil or "" (no bound, returned as the zero time),
// time.Time and *time.Time, integer or float Unix seconds, and ISO-8601
// text. Anything else fails with ErrInvalidInstant.
func ParseInstant(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		if t.IsZero() {
			return time.Time{}, nil
		}
		return t.UTC(), nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, nil
		}
		return t.UTC(), nil
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case int32:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInstant, t)
		}
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
	case string:
		return parseInstantText(t)
	}
	return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidInstant, v)
}

func parseInstantText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
}
