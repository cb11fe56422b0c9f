package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/calendar"
	"shiftlog/internal/holidays"
	"shiftlog/internal/models"
	"shiftlog/internal/worklog"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate("2025-03-08", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), d)

	today, err := parseDate("today", time.UTC)
	require.NoError(t, err)
	assert.Zero(t, today.Hour())

	_, err = parseDate("", time.UTC)
	assert.Error(t, err)
	_, err = parseDate("08/03/2025", time.UTC)
	assert.Error(t, err)
}

func TestParseMonth(t *testing.T) {
	m, err := parseMonth("2025-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), m)

	_, err = parseMonth("2025-13", time.UTC)
	assert.Error(t, err)
}

func TestInMonth(t *testing.T) {
	cal := holidays.New()
	logs := []models.WorkLog{
		worklog.NewWorkLog(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), "A", cal),
		worklog.NewWorkLog(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "A", cal),
	}
	got := inMonth(logs, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, got, 1)
	assert.Equal(t, "2025-03-01", got[0].ID)
}

func TestRenderMonth(t *testing.T) {
	cal := holidays.New()
	month := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	worked := worklog.NewWorkLog(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), "Centro", cal)
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	v := calendar.View{
		Month:   month,
		Grid:    calendar.MonthGrid(month),
		Summary: calendar.MonthlySummary(month, []models.WorkLog{worked}, now, cal),
		Worked:  map[string]models.WorkLog{worked.ID: worked},
	}

	var buf bytes.Buffer
	renderMonth(&buf, v, "es", now)
	out := buf.String()

	assert.Contains(t, out, "marzo 2025")
	assert.Contains(t, out, "[ 4]")
	assert.Contains(t, out, "   5 *")
	assert.Contains(t, out, "Días trabajados: 1")
	assert.Contains(t, out, "Días del mes: 31")

	buf.Reset()
	renderMonth(&buf, v, "en", now)
	assert.Contains(t, buf.String(), "March 2025")
	assert.Contains(t, buf.String(), "Worked days: 1")
}

func TestIsYAML(t *testing.T) {
	assert.True(t, isYAML("h.yaml"))
	assert.True(t, isYAML("H.YML"))
	assert.False(t, isYAML("h.ics"))
}
