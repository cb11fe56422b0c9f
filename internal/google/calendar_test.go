package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"shiftlog/internal/holidays"
)

func TestToHolidays(t *testing.T) {
	items := []*calendar.Event{
		{Summary: "Año Nuevo", Start: &calendar.EventDateTime{Date: "2025-01-01"}, End: &calendar.EventDateTime{Date: "2025-01-02"}},
		{Summary: "Puente", Start: &calendar.EventDateTime{Date: "2025-12-31"}, End: &calendar.EventDateTime{Date: "2026-01-02"}},
		{Summary: "Cambio de hora", Start: &calendar.EventDateTime{DateTime: "2025-03-30T02:00:00+01:00"}},
		{Summary: "Sin fin", Start: &calendar.EventDateTime{Date: "2025-08-15"}},
	}

	got := toHolidays(items, 2025)
	assert.Equal(t, []holidays.Holiday{
		{Date: "2025-01-01", Name: "Año Nuevo"},
		{Date: "2025-12-31", Name: "Puente"},
		{Date: "2025-08-15", Name: "Sin fin"},
	}, got)
}

func TestFetchHolidays(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/events"), r.URL.Path)
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"summary": "Reyes", "start": map[string]string{"date": "2025-01-06"}, "end": map[string]string{"date": "2025-01-07"}},
			},
		})
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewHolidayClient(context.Background(), logger, "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	got, err := c.FetchHolidays(context.Background(), "es.spain#holiday@group.v.calendar.google.com", 2025)
	require.NoError(t, err)
	assert.Equal(t, []holidays.Holiday{{Date: "2025-01-06", Name: "Reyes"}}, got)
	assert.Contains(t, query, "singleEvents=true")
	assert.Contains(t, query, "timeMin=2025-01-01")
}
