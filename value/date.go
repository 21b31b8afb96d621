package value

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DatePrecision indicates the granularity of a date.
type DatePrecision int

const (
	PrecisionUnknown DatePrecision = iota
	PrecisionYear
	PrecisionMonth
	PrecisionDay
)

// Date represents a parsed metadata date with its precision.
type Date struct {
	Year      int
	Month     int
	Day       int
	Precision DatePrecision
	Raw       string
}

// IsZero returns true if the date has no meaningful value.
func (d Date) IsZero() bool {
	return d.Year == 0
}

var (
	// 2020, 2020-04, 2020-04-01
	isoDateRegex = regexp.MustCompile(`^(\d{4})(?:-(\d{1,2})(?:-(\d{1,2}))?)?$`)

	// 2020-04-01T00:00:00Z and friends, only the date part is kept
	timestampRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})[T ]`)

	// 01/04/2020
	slashDateRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

	yearExtractRegex = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b`)
)

// ParseDate parses a date string with format auto-detection.
// Unparseable input yields a zero Date, never an error.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}

	d := Date{Raw: s}

	if m := timestampRegex.FindStringSubmatch(s); m != nil {
		d.Year, _ = strconv.Atoi(m[1])
		d.Month, _ = strconv.Atoi(m[2])
		d.Day, _ = strconv.Atoi(m[3])
		d.Precision = PrecisionDay
		return d
	}

	if m := isoDateRegex.FindStringSubmatch(s); m != nil {
		d.Year, _ = strconv.Atoi(m[1])
		d.Precision = PrecisionYear
		if m[2] != "" {
			d.Month, _ = strconv.Atoi(m[2])
			d.Precision = PrecisionMonth
		}
		if m[3] != "" {
			d.Day, _ = strconv.Atoi(m[3])
			d.Precision = PrecisionDay
		}
		return d
	}

	if m := slashDateRegex.FindStringSubmatch(s); m != nil {
		d.Day, _ = strconv.Atoi(m[1])
		d.Month, _ = strconv.Atoi(m[2])
		d.Year, _ = strconv.Atoi(m[3])
		d.Precision = PrecisionDay
		return d
	}

	if m := yearExtractRegex.FindStringSubmatch(s); m != nil {
		d.Year, _ = strconv.Atoi(m[1])
		d.Precision = PrecisionYear
		return d
	}

	return Date{Raw: s}
}

// Format renders the date with a pattern made of yyyy, yy, MMMM, MMM, MM
// and dd tokens. Text in single quotes is copied as is and '' yields a
// quote; any other character is copied too. A missing month or day defaults
// to the first, and the day is clamped to the length of the month.
func (d Date) Format(pattern string) string {
	if d.IsZero() {
		return ""
	}
	month, day := time.Month(d.Month), d.Day
	if month < time.January || month > time.December {
		month = time.January
	}
	if last := daysIn(d.Year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}

	var b strings.Builder
	for i := 0; i < len(pattern); {
		rest := pattern[i:]
		switch {
		case strings.HasPrefix(rest, "''"):
			b.WriteByte('\'')
			i += 2
		case rest[0] == '\'':
			i += quoted(&b, rest)
		case hasToken(rest, "yyyy", "YYYY"):
			fmt.Fprintf(&b, "%04d", d.Year)
			i += 4
		case hasToken(rest, "yy", "YY"):
			fmt.Fprintf(&b, "%02d", d.Year%100)
			i += 2
		case strings.HasPrefix(rest, "MMMM"):
			b.WriteString(month.String())
			i += 4
		case strings.HasPrefix(rest, "MMM"):
			b.WriteString(month.String()[:3])
			i += 3
		case strings.HasPrefix(rest, "MM"):
			fmt.Fprintf(&b, "%02d", int(month))
			i += 2
		case strings.HasPrefix(rest, "dd"):
			fmt.Fprintf(&b, "%02d", day)
			i += 2
		default:
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

// quoted copies the quoted text at the start of s to b and returns the
// number of bytes consumed. '' inside the quotes yields a quote; an
// unterminated quote runs to the end of s.
func quoted(b *strings.Builder, s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

func hasToken(s string, tokens ...string) bool {
	for _, tok := range tokens {
		if strings.HasPrefix(s, tok) {
			return true
		}
	}
	return false
}

// daysIn returns the number of days of month in year.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
