// Package value turns loosely typed document values (decoded YAML or JSON)
// into metadata strings, and parses the dates and personal names those
// strings carry.
package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Text renders a decoded scalar as metadata text. Numbers print without a
// trailing fraction (1978.0 → "1978"), and timestamps at midnight UTC print
// as a bare date.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		u := val.UTC()
		if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
			return u.Format(time.DateOnly)
		}
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Texts flattens a scalar or a list of scalars into trimmed, non-empty
// metadata texts.
func Texts(v any) []string {
	var raw []any
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		raw = val
	case []string:
		raw = make([]any, len(val))
		for i, s := range val {
			raw[i] = s
		}
	default:
		raw = []any{v}
	}

	var out []string
	for _, r := range raw {
		if s := strings.TrimSpace(Text(r)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
