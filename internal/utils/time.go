package utils

import (
	"fmt"
	"time"
)

// FormatDate renders t in the YYYY-MM-DD wire format.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string in the given location.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

func EndOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, t.Location())
}

// MonthRange returns the first and last calendar day of month/year. The last
// day is the day before the first of the following month.
func MonthRange(year int, month time.Month) (first, last time.Time) {
	first = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return first, last
}

// MonthRangeStrings is MonthRange formatted for the wire.
func MonthRangeStrings(year int, month time.Month) (string, string) {
	first, last := MonthRange(year, month)
	return FormatDate(first), FormatDate(last)
}
