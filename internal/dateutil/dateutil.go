// Package dateutil resolves invoice dates and payment terms.
package dateutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxFormatLength limits format string length.
const MaxFormatLength = 50

// DefaultFormat is used when "auto" carries no format.
const DefaultFormat = "YYYY-MM-DD"

// Keywords that resolve to the current date.
const (
	KeywordAuto  = "auto"
	KeywordToday = "today"
)

// tokens maps format tokens to Go layout components, longest first.
var tokens = [...]struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// Presets are named formats accepted wherever a format is.
var Presets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
	"kenya":    "DD/MM/YYYY",
}

// Layout converts a token format (or preset name) into a Go time layout.
// Text inside brackets is copied literally: "[Issued] D MMM" -> "Issued 2 Jan".
func Layout(format string) (string, error) {
	if preset, ok := Presets[strings.ToLower(format)]; ok {
		format = preset
	}
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxFormatLength)
	}

	var b strings.Builder
	rest := format
	for rest != "" {
		if rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed bracket in %q", ErrInvalidDateFormat, format)
			}
			b.WriteString(rest[1:end])
			rest = rest[end+1:]
			continue
		}
		n := 1
		lit := rest[:1]
		for _, t := range tokens {
			if strings.HasPrefix(rest, t.token) {
				n, lit = len(t.token), t.layout
				break
			}
		}
		b.WriteString(lit)
		rest = rest[n:]
	}
	return b.String(), nil
}

// Format renders t with a token format or preset.
func Format(t time.Time, format string) (string, error) {
	layout, err := Layout(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// Resolve expands date keywords against now:
//   - "auto" or "today": now in DefaultFormat
//   - "auto:FORMAT": now in FORMAT (token format or preset)
//
// Any other value is returned unchanged.
func Resolve(value string, now time.Time) (string, error) {
	trimmed := strings.TrimSpace(value)
	keyword, format, hasFormat := strings.Cut(trimmed, ":")
	keyword = strings.ToLower(keyword)

	if keyword != KeywordAuto && keyword != KeywordToday {
		return value, nil
	}
	if !hasFormat {
		return Format(now, DefaultFormat)
	}
	if keyword != KeywordAuto {
		return "", fmt.Errorf("%w: only %q accepts a format, got %q", ErrInvalidDateFormat, KeywordAuto, value)
	}
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty after \"auto:\"", ErrInvalidDateFormat)
	}
	return Format(now, format)
}

// NetDays extracts the day count from payment terms such as "Net 30" or
// "net-15". It reports false for anything else ("Due on receipt").
func NetDays(terms string) (int, bool) {
	fields := strings.FieldsFunc(strings.ToLower(terms), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	if len(fields) != 2 || fields[0] != "net" {
		return 0, false
	}
	days, err := strconv.Atoi(fields[1])
	if err != nil || days < 0 {
		return 0, false
	}
	return days, true
}

// DueDate returns issued plus the net days of terms.
func DueDate(issued time.Time, terms string) (time.Time, bool) {
	days, ok := NetDays(terms)
	if !ok {
		return time.Time{}, false
	}
	return issued.AddDate(0, 0, days), true
}
