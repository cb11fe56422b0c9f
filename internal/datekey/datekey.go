package datekey

import (
	"fmt"
	"time"
)

// Layout is the canonical date key layout (YYYY-MM-DD).
const Layout = "2006-01-02"

// Key returns the date key for t built from t's own calendar fields.
// The time is never converted to UTC, so a wall-clock date always maps to
// the same key regardless of the zone it was observed in.
func Key(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// Parse converts a date key back to local midnight in loc.
func Parse(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(Layout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// Valid reports whether key is a well-formed date key.
func Valid(key string) bool {
	t, err := time.Parse(Layout, key)
	return err == nil && t.Format(Layout) == key
}

// Midnight returns 00:00:00 of the same day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart returns midnight of the Monday at or before t.
func WeekStart(t time.Time) time.Time {
	// Go's weekday: Sunday=0 … Saturday=6; shift so Monday=0.
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}

// SameWeek reports whether a and b fall in the same Monday-based week.
func SameWeek(a, b time.Time) bool {
	return Key(WeekStart(a)) == Key(WeekStart(b))
}

// SameMonth reports whether a and b share year and month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Key(a) == Key(b)
}

// IsToday reports whether t is the same calendar day as now.
func IsToday(t, now time.Time) bool {
	return SameDay(t, now.In(t.Location()))
}

// MonthStart returns midnight of the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// EpochMillis returns local midnight of t as Unix milliseconds.
func EpochMillis(t time.Time) int64 {
	return Midnight(t).UnixMilli()
}

// FromEpochMillis decodes a Unix millisecond timestamp into loc.
func FromEpochMillis(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc)
}
