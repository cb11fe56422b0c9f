package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"shiftlog/internal/app"
	"shiftlog/internal/calendar"
	"shiftlog/internal/config"
	"shiftlog/internal/datekey"
	"shiftlog/internal/google"
	"shiftlog/internal/holidays"
	"shiftlog/internal/icloud"
	"shiftlog/internal/logging"
	"shiftlog/internal/models"
)

func main() {
	cliApp := &cli.App{
		Name:  "shiftlog",
		Usage: "Track worked days and monthly attendance.",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "How long to wait for sign-in and the first sync."},
		},
		Commands: []*cli.Command{
			markCommand(),
			unmarkCommand(),
			monthCommand(),
			watchCommand(),
			exportCommand(),
			holidaysCommand(),
			logoutCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// withApp starts the engine, waits for the first snapshot and runs fn.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, closer := logging.New(cfg.LogLevel, cfg.LogFile)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return err
	}
	readyCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()
	if err := a.WaitReady(readyCtx); err != nil {
		return fmt.Errorf("work logs not available: %w", err)
	}
	return fn(ctx, a)
}

func markCommand() *cli.Command {
	return &cli.Command{
		Name:      "mark",
		Usage:     "Mark a day as worked.",
		ArgsUsage: "DATE (YYYY-MM-DD or 'today')",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "center", Aliases: []string{"c"}, Usage: "Work location. Defaults to the first frequent center."},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				day, err := parseDate(c.Args().First(), a.Config.Location)
				if err != nil {
					return err
				}
				center := c.String("center")
				if !c.IsSet("center") {
					center = a.Store.DefaultCenter()
				}

				if err := a.Store.SetDay(ctx, day, true, center); err != nil {
					return err
				}
				if err := waitUntil(ctx, c, a, func() bool {
					l, ok := a.Store.Lookup(day)
					return ok && l.Center == center
				}); err != nil {
					return err
				}

				fmt.Printf("Marked %s as worked at %s.\n", datekey.Key(day), center)
				return nil
			})
		},
	}
}

func unmarkCommand() *cli.Command {
	return &cli.Command{
		Name:      "unmark",
		Usage:     "Mark a day as not worked.",
		ArgsUsage: "DATE (YYYY-MM-DD or 'today')",
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				day, err := parseDate(c.Args().First(), a.Config.Location)
				if err != nil {
					return err
				}
				if !a.Store.IsDayWorked(day) {
					fmt.Printf("%s is not marked as worked.\n", datekey.Key(day))
					return nil
				}

				if err := a.Store.SetDay(ctx, day, false, ""); err != nil {
					return err
				}
				if err := waitUntil(ctx, c, a, func() bool { return !a.Store.IsDayWorked(day) }); err != nil {
					return err
				}
				fmt.Printf("Removed %s.\n", datekey.Key(day))
				return nil
			})
		},
	}
}

func monthCommand() *cli.Command {
	return &cli.Command{
		Name:  "month",
		Usage: "Show the calendar and summary of a month.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Aliases: []string{"m"}, Usage: "Month as YYYY-MM. Defaults to the current month."},
			&cli.StringFlag{Name: "lang", Value: "es", Usage: "Language of names and labels (es, en)."},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				if c.IsSet("month") {
					month, err := parseMonth(c.String("month"), a.Config.Location)
					if err != nil {
						return err
					}
					a.Selection.Set(month)
				}
				renderMonth(os.Stdout, a.Deriver.Latest(), c.String("lang"), time.Now().In(a.Config.Location))
				return nil
			})
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow the work log live and print the month on every change.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve prometheus metrics on this address (e.g. :9090)."},
			&cli.StringFlag{Name: "lang", Value: "es", Usage: "Language of names and labels (es, en)."},
			&cli.DurationFlag{Name: "interval", Value: 5 * time.Minute, Usage: "How often to log a status line."},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				addr := c.String("metrics-addr")
				if addr == "" {
					addr = a.Config.MetricsAddr
				}
				if addr != "" {
					srv := serveMetrics(a, addr)
					defer srv.Shutdown(context.Background())
				}

				lang := c.String("lang")
				show := func(v calendar.View) {
					renderMonth(os.Stdout, v, lang, time.Now().In(a.Config.Location))
					fmt.Println()
				}
				cancel := a.Deriver.OnChange(show)
				defer cancel()
				show(a.Deriver.Latest())

				a.Logger.Info("Starting watcher.", "interval", c.Duration("interval"))
				ticker := time.NewTicker(c.Duration("interval"))
				defer ticker.Stop()
				for {
					a.Logger.Info("Work log status.", "uid", a.Syncer.UID(), "records", a.Mirror.Len(), "synced", a.Mirror.Synced())
					select {
					case <-ctx.Done():
						a.Logger.Info("Stopping watcher.")
						return nil
					case <-ticker.C:
					}
				}
			})
		},
	}
}

func serveMetrics(a *app.App, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.Logger.Info("Serving metrics.", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export worked days as all-day calendar events.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Aliases: []string{"m"}, Usage: "Only export this month (YYYY-MM)."},
			&cli.StringFlag{Name: "ics", Usage: "Write an .ics file ('-' for stdout)."},
			&cli.BoolFlag{Name: "caldav", Usage: "Upload to the configured CalDAV calendar."},
		},
		Action: func(c *cli.Context) error {
			if c.String("ics") == "" && !c.Bool("caldav") {
				return fmt.Errorf("nothing to do: pass --ics and/or --caldav")
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				logs := a.Mirror.Snapshot()
				if c.IsSet("month") {
					month, err := parseMonth(c.String("month"), a.Config.Location)
					if err != nil {
						return err
					}
					logs = inMonth(logs, month)
				}
				owner := a.Syncer.UID()

				if path := c.String("ics"); path != "" {
					if err := writeICSFile(path, owner, logs); err != nil {
						return err
					}
					a.Logger.Info("Wrote iCalendar export.", "path", path, "count", len(logs))
				}

				if c.Bool("caldav") {
					dav := a.Config.CalDAV
					if dav.Username == "" || dav.Password == "" {
						return fmt.Errorf("CALDAV_USERNAME and CALDAV_PASSWORD environment variables must be set")
					}
					client, err := icloud.NewClient(ctx, a.Logger, dav.URL, dav.Username, dav.Password, dav.CalendarName)
					if err != nil {
						return fmt.Errorf("failed to create caldav client: %w", err)
					}
					n, err := client.Export(ctx, owner, logs)
					if err != nil {
						return fmt.Errorf("exported %d of %d days: %w", n, len(logs), err)
					}
				}
				return nil
			})
		},
	}
}

func writeICSFile(path, owner string, logs []models.WorkLog) error {
	if path == "-" {
		return icloud.WriteICS(os.Stdout, owner, logs)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create export file: %w", err)
	}
	if err := icloud.WriteICS(f, owner, logs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func holidaysCommand() *cli.Command {
	return &cli.Command{
		Name:  "holidays",
		Usage: "Inspect and update the holiday calendar.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the configured holidays.",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Usage: "Only list this year."},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return fmt.Errorf("failed to load config: %w", err)
					}
					cal, err := app.LoadHolidays(cfg)
					if err != nil {
						return err
					}
					prefix := ""
					if c.IsSet("year") {
						prefix = fmt.Sprintf("%04d-", c.Int("year"))
					}
					for _, h := range cal.Holidays() {
						if strings.HasPrefix(h.Date, prefix) {
							fmt.Printf("%s  %s\n", h.Date, h.Name)
						}
					}
					return nil
				},
			},
			{
				Name:  "import",
				Usage: "Import a year of public holidays from Google Calendar into a YAML file.",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Value: time.Now().Year(), Usage: "Year to import."},
					&cli.StringFlag{Name: "calendar", Usage: "Google calendar id. Defaults to GOOGLE_HOLIDAY_CALENDAR_ID."},
					&cli.StringFlag{Name: "out", Usage: "YAML file to update. Defaults to SHIFTLOG_HOLIDAYS."},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return fmt.Errorf("failed to load config: %w", err)
					}
					logger, closer := logging.New(cfg.LogLevel, cfg.LogFile)
					defer closer.Close()

					if cfg.GoogleAPIKey == "" {
						return fmt.Errorf("GOOGLE_API_KEY environment variable not set")
					}
					out := c.String("out")
					if out == "" {
						out = cfg.HolidaysFile
					}
					if out == "" || !isYAML(out) {
						return fmt.Errorf("an output .yaml file is required (--out or SHIFTLOG_HOLIDAYS)")
					}
					calendarID := c.String("calendar")
					if calendarID == "" {
						calendarID = cfg.GoogleHolidayCalendarID
					}

					client, err := google.NewHolidayClient(c.Context, logger, cfg.GoogleAPIKey)
					if err != nil {
						return err
					}
					fetched, err := client.FetchHolidays(c.Context, calendarID, c.Int("year"))
					if err != nil {
						return err
					}

					cal := holidays.FromHolidays(fetched)
					if existing, err := holidays.LoadFile(out); err == nil {
						cal = existing.Merge(cal)
					} else if !errors.Is(err, os.ErrNotExist) {
						return err
					}
					if err := holidays.WriteYAML(out, cal); err != nil {
						return err
					}
					logger.Info("Imported holidays.", "count", len(fetched), "file", out)
					return nil
				},
			},
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored identity. The next run signs in as a new anonymous user.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := app.Provider(cfg).SignOut(c.Context); err != nil {
				return fmt.Errorf("failed to sign out: %w", err)
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}

// waitUntil waits for a write to come back through the subscription.
func waitUntil(ctx context.Context, c *cli.Context, a *app.App, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()
	if err := a.Mirror.WaitFor(ctx, cond); err != nil {
		return fmt.Errorf("change saved but not yet visible: %w", err)
	}
	return nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("a date is required")
	}
	if strings.EqualFold(s, "today") {
		return datekey.Midnight(time.Now().In(loc)), nil
	}
	return datekey.Parse(s, loc)
}

func parseMonth(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month '%s', expected YYYY-MM: %w", s, err)
	}
	return t, nil
}

func inMonth(logs []models.WorkLog, month time.Time) []models.WorkLog {
	var out []models.WorkLog
	for _, l := range logs {
		if datekey.SameMonth(l.Date, month) {
			out = append(out, l)
		}
	}
	return out
}

func isYAML(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
