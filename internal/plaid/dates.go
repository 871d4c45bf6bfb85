package plaid

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateFormatter renders and parses the provider's calendar dates
// (year-month-day, no time component). It is a value type with no shared state.
type DateFormatter struct {
	loc *time.Location
}

// NewDateFormatter returns a formatter whose parsed dates are midnight in loc.
// loc only affects Parse; Format always renders the calendar day in the
// time's own location. A nil loc means UTC.
func NewDateFormatter(loc *time.Location) DateFormatter {
	if loc == nil {
		loc = time.UTC
	}
	return DateFormatter{loc: loc}
}

// Format renders the calendar day of t, as seen in t's own location.
// Years are zero padded to four digits and never truncated.
func (f DateFormatter) Format(t time.Time) string {
	year, month, day := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// Parse reads a date produced by Format.
func (f DateFormatter) Parse(s string) (time.Time, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) < 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}

	year, err := parseDigits(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year in %q: %w", s, err)
	}
	month, err := parseDigits(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid month in %q", s)
	}
	day, err := parseDigits(parts[2])
	if err != nil || day < 1 {
		return time.Time{}, fmt.Errorf("invalid day in %q", s)
	}

	loc := f.loc
	if loc == nil {
		loc = time.UTC
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid day in %q", s)
	}

	return t, nil
}

func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.Atoi(s)
}
