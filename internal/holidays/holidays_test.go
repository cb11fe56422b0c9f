package holidays_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/holidays"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDefaultCalendar(t *testing.T) {
	cal := holidays.Default()

	tests := []struct {
		name    string
		date    time.Time
		weekend bool
		holiday bool
	}{
		{"new year is a wednesday holiday", day(2025, 1, 1), false, true},
		{"ordinary thursday", day(2025, 1, 2), false, false},
		{"saturday", day(2025, 3, 8), true, false},
		{"sunday", day(2025, 3, 9), true, false},
		{"national day on a sunday", day(2025, 10, 12), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.weekend, cal.IsWeekend(tt.date))
			assert.Equal(t, tt.holiday, cal.IsHoliday(tt.date))
			assert.Equal(t, tt.weekend || tt.holiday, cal.IsWeekendOrHoliday(tt.date))
		})
	}

	name, ok := cal.Name(day(2025, 12, 25))
	assert.True(t, ok)
	assert.Equal(t, "Navidad", name)
	assert.Equal(t, 10, cal.Len())
}

func TestFromHolidaysIgnoresInvalidDates(t *testing.T) {
	cal := holidays.New("2026-01-01", "not-a-date", "2026-13-01")
	assert.Equal(t, 1, cal.Len())
	assert.True(t, cal.IsHoliday(day(2026, 1, 1)))
}

func TestMerge(t *testing.T) {
	merged := holidays.New("2026-01-01").Merge(holidays.FromHolidays([]holidays.Holiday{
		{Date: "2026-01-01", Name: "Año Nuevo"},
		{Date: "2026-01-06", Name: "Reyes"},
	}))
	require.Equal(t, 2, merged.Len())
	name, _ := merged.Name(day(2026, 1, 1))
	assert.Equal(t, "Año Nuevo", name)
}

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.yaml")
	require.NoError(t, holidays.WriteYAML(path, holidays.Default()))

	cal, err := holidays.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, holidays.Default().Holidays(), cal.Holidays())
}

func TestLoadFileRejectsBadYAMLDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.yml")
	require.NoError(t, os.WriteFile(path, []byte("holidays:\n  - date: 2025-1-1\n"), 0o600))

	_, err := holidays.LoadFile(path)
	assert.Error(t, err)
}

func TestDecodeICS(t *testing.T) {
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:one@test",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;VALUE=DATE:20250418",
		"DTEND;VALUE=DATE:20250419",
		"SUMMARY:Viernes Santo",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:two@test",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;VALUE=DATE:20251224",
		"DTEND;VALUE=DATE:20251226",
		"SUMMARY:Navidad",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:three@test",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250308T100000Z",
		"DTEND:20250308T110000Z",
		"SUMMARY:Día de la Mujer",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	hs, err := holidays.DecodeICS(strings.NewReader(ics))
	require.NoError(t, err)

	cal := holidays.FromHolidays(hs)
	assert.Equal(t, 3, cal.Len())
	assert.True(t, cal.IsHoliday(day(2025, 4, 18)))
	assert.True(t, cal.IsHoliday(day(2025, 12, 24)))
	assert.True(t, cal.IsHoliday(day(2025, 12, 25)))
	assert.False(t, cal.IsHoliday(day(2025, 12, 26)))
	assert.False(t, cal.IsHoliday(day(2025, 3, 8)), "timed events are not days off")
}

func TestLoadFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.txt")
	require.NoError(t, os.WriteFile(path, []byte("2025-01-01"), 0o600))

	_, err := holidays.LoadFile(path)
	assert.Error(t, err)
}
