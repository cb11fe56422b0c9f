// Package icloud publishes worked days as all-day events, either to a
// CalDAV calendar (iCloud by default) or to a local .ics file.
package icloud

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"shiftlog/internal/models"
)

const productID = "-//shiftlog//EN"

// uidNamespace scopes event UIDs so re-exporting a day updates the same event.
var uidNamespace = uuid.MustParse("3f1b7c1e-6a2d-4d0e-9a53-8c1c2f6e9b41")

// basicAuthTransport adds Basic Auth and a user agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds basic auth and the user agent to every request.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "shiftlog/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient writes worked days into one calendar of a CalDAV server.
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
}

// NewClient connects to endpoint and locates the calendar named calendarName.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName string) (*CalDAVClient, error) {
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
	}

	logger.Info("Finding CalDAV calendar", "endpoint", endpoint, "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Found CalDAV calendar", "path", calendarPath)
	return c, nil
}

// Export creates or replaces one event per log. It stops at the first failure
// and returns how many events were written.
func (c *CalDAVClient) Export(ctx context.Context, ownerUID string, logs []models.WorkLog) (int, error) {
	for i, log := range logs {
		if err := c.PutDay(ctx, ownerUID, log); err != nil {
			return i, err
		}
	}
	c.logger.Info("Exported worked days to CalDAV.", "count", len(logs))
	return len(logs), nil
}

// PutDay writes the event for a single worked day.
func (c *CalDAVClient) PutDay(ctx context.Context, ownerUID string, log models.WorkLog) error {
	uid := EventUID(ownerUID, log.ID)
	c.logger.Debug("Writing worked day", "id", log.ID, "uid", uid)

	cal := newCalendar()
	cal.Children = append(cal.Children, toEvent(ownerUID, log, time.Now()))

	writer, err := c.webdavClient.Create(ctx, path.Join(c.calendarPath, uid+".ics"))
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event %s: %w", log.ID, err)
	}
	return nil
}

// findCalendar discovers the user's calendars and returns the path of the one named name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}
	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}
	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// EventUID is stable for a given owner and day.
func EventUID(ownerUID, id string) string {
	return uuid.NewSHA1(uidNamespace, []byte(ownerUID+"/"+id)).String()
}

// WriteICS encodes logs as a calendar with one all-day event per worked day.
func WriteICS(w io.Writer, ownerUID string, logs []models.WorkLog) error {
	cal := newCalendar()
	now := time.Now()
	for _, log := range logs {
		cal.Children = append(cal.Children, toEvent(ownerUID, log, now))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

// toEvent converts a worked day to an all-day VEVENT.
func toEvent(ownerUID string, log models.WorkLog, stamp time.Time) *ical.Component {
	day := time.Date(log.Date.Year(), log.Date.Month(), log.Date.Day(), 0, 0, 0, 0, time.UTC)

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, EventUID(ownerUID, log.ID))
	ve.Props.SetText(ical.PropSummary, log.Center)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDate(ical.PropDateTimeStart, day)
	ve.Props.SetDate(ical.PropDateTimeEnd, day.AddDate(0, 0, 1))
	ve.Props.SetText(ical.PropLocation, log.Center)

	// CATEGORIES is a list, so the value is set raw to keep the comma unescaped.
	categories := ical.NewProp(ical.PropCategories)
	categories.Value = "Work"
	if log.IsWeekendOrHoliday {
		categories.Value = "Work,Holiday"
	}
	ve.Props.Set(categories)
	return ve
}
