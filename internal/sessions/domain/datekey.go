package domain

import (
	"fmt"
	"time"
)

// DateKeyLayout is the YYYY-MM-DD layout used for date keys.
const DateKeyLayout = "2006-01-02"

// DateKeyOf returns the local calendar date of t.
func DateKeyOf(t time.Time) string {
	return t.Local().Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key as local midnight.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// DaysBetween returns the number of calendar days from a to b.
// The result is negative when b is before a.
func DaysBetween(a, b string) (int, error) {
	ta, err := time.Parse(DateKeyLayout, a)
	if err != nil {
		return 0, fmt.Errorf("invalid date key %q: %w", a, err)
	}
	tb, err := time.Parse(DateKeyLayout, b)
	if err != nil {
		return 0, fmt.Errorf("invalid date key %q: %w", b, err)
	}
	// Both parse as UTC midnight, so no DST hour can skew the division.
	return int(tb.Sub(ta).Hours() / 24), nil
}

// AddDays shifts a date key by n calendar days.
func AddDays(key string, n int) (string, error) {
	t, err := time.Parse(DateKeyLayout, key)
	if err != nil {
		return "", fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t.AddDate(0, 0, n).Format(DateKeyLayout), nil
}
