package datekey_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/datekey"
)

func TestKey(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"zero padded", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "2025-03-01"},
		{"end of year", time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), "2025-12-31"},
		// 00:30 in Madrid is still the previous day in UTC.
		{"local fields not utc", time.Date(2025, 1, 1, 0, 30, 0, 0, madrid), "2025-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, datekey.Key(tt.in))
			assert.Equal(t, tt.want, datekey.Key(tt.in), "key must be stable across calls")
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	d, err := datekey.Parse("2025-03-08", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2025-03-08", datekey.Key(d))

	_, err = datekey.Parse("2025-3-8", time.UTC)
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, datekey.Valid("2024-02-29"))
	assert.False(t, datekey.Valid("2025-02-29"))
	assert.False(t, datekey.Valid("2025-1-01"))
	assert.False(t, datekey.Valid(""))
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"monday is its own start", time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC), "2025-03-03"},
		{"sunday belongs to previous monday", time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC), "2025-03-03"},
		{"crosses month", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "2025-02-24"},
		{"crosses year", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2024-12-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := datekey.WeekStart(tt.in)
			assert.Equal(t, tt.want, datekey.Key(ws))
			assert.Equal(t, time.Monday, ws.Weekday())
			assert.Zero(t, ws.Hour())
		})
	}
}

func TestSameWeek(t *testing.T) {
	mon := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		d := mon.AddDate(0, 0, i)
		assert.True(t, datekey.SameWeek(mon, d), "day %s", datekey.Key(d))
	}

	sunday := time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)
	nextMonday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.False(t, datekey.SameWeek(sunday, nextMonday))

	assert.True(t, datekey.SameWeek(
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
	))
}

func TestSameMonth(t *testing.T) {
	assert.True(t, datekey.SameMonth(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC),
	))
	assert.False(t, datekey.SameMonth(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, datekey.DaysInMonth(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28, datekey.DaysInMonth(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, datekey.DaysInMonth(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestEpochMillis(t *testing.T) {
	d := time.Date(2025, 3, 8, 17, 45, 0, 0, time.UTC)
	ms := datekey.EpochMillis(d)
	back := datekey.FromEpochMillis(ms, time.UTC)
	assert.Equal(t, "2025-03-08", datekey.Key(back))
	assert.Zero(t, back.Hour())
}

func TestIsToday(t *testing.T) {
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	assert.True(t, datekey.IsToday(time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, datekey.IsToday(time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), now))
}
