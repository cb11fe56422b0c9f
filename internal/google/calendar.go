// Package google imports public holidays from Google Calendar.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"shiftlog/internal/datekey"
	"shiftlog/internal/holidays"
)

// HolidayClient reads Google's public holiday calendars.
type HolidayClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewHolidayClient creates a client authenticated with an API key. Public
// holiday calendars need no user consent. Extra options are applied after
// the key, so tests can point the client elsewhere.
func NewHolidayClient(ctx context.Context, logger *slog.Logger, apiKey string, opts ...option.ClientOption) (*HolidayClient, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &HolidayClient{service: service, logger: logger}, nil
}

// FetchHolidays returns the all-day events of calendarID during year.
func (c *HolidayClient) FetchHolidays(ctx context.Context, calendarID string, year int) ([]holidays.Holiday, error) {
	c.logger.Debug("Fetching holidays", "calendarID", calendarID, "year", year)
	tmin := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	tmax := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)

	var out []holidays.Holiday
	err := c.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin).
		TimeMax(tmax).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			out = append(out, toHolidays(page.Items, year)...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve holidays: %w", err)
	}

	c.logger.Info("Fetched holidays from Google Calendar.", "count", len(out), "calendarID", calendarID)
	return out, nil
}

// toHolidays keeps all-day events inside year, one entry per covered day.
func toHolidays(items []*calendar.Event, year int) []holidays.Holiday {
	var out []holidays.Holiday
	for _, item := range items {
		// Timed events are observances, not days off.
		if item.Start == nil || item.Start.Date == "" {
			continue
		}
		start, err := datekey.Parse(item.Start.Date, time.UTC)
		if err != nil {
			continue
		}
		end := start.AddDate(0, 0, 1)
		if item.End != nil && item.End.Date != "" {
			if e, err := datekey.Parse(item.End.Date, time.UTC); err == nil && e.After(start) {
				end = e
			}
		}
		for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
			if d.Year() == year {
				out = append(out, holidays.Holiday{Date: datekey.Key(d), Name: item.Summary})
			}
		}
	}
	return out
}
