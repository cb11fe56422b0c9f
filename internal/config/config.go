// Package config reads settings from the environment, after loading an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names.
const (
	BackendFirestore = "firestore"
	BackendNATS      = "nats"
	BackendSQLite    = "sqlite"
	BackendMemory    = "memory"
)

const (
	DefaultNamespace         = "artifacts"
	DefaultAppID             = "default-app-id"
	DefaultNATSURL           = "nats://127.0.0.1:4222"
	DefaultHolidayCalendarID = "es.spain#holiday@group.v.calendar.google.com"
	DefaultCalDAVURL         = "https://caldav.icloud.com/"
	DefaultCalDAVCalendar    = "Shifts"
)

// CalDAV holds the export target.
type CalDAV struct {
	URL          string
	Username     string
	Password     string
	CalendarName string
}

// Config is the complete runtime configuration.
type Config struct {
	Backend   string
	Namespace string
	AppID     string

	FirebaseAPIKey    string
	FirebaseProjectID string

	NATSURL    string
	NATSBucket string

	DBPath string

	HolidaysFile string
	Centers      []string

	// Credentials is "keyring" or "file".
	Credentials     string
	CredentialsFile string

	Location *time.Location
	LogLevel string
	LogFile  string

	MetricsAddr string

	GoogleAPIKey            string
	GoogleHolidayCalendarID string

	CalDAV CalDAV
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, filling defaults and validating.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	dataDir := get("SHIFTLOG_DATA_DIR", defaultDataDir())
	cfg := &Config{
		Namespace:         get("SHIFTLOG_NAMESPACE", DefaultNamespace),
		FirebaseAPIKey:    get("FIREBASE_API_KEY", ""),
		FirebaseProjectID: get("FIREBASE_PROJECT_ID", ""),
		NATSURL:           get("NATS_URL", DefaultNATSURL),
		NATSBucket:        get("NATS_BUCKET", "shiftlog"),
		DBPath:            get("SHIFTLOG_DB", filepath.Join(dataDir, "shiftlog.db")),
		HolidaysFile:      get("SHIFTLOG_HOLIDAYS", ""),
		Credentials:       strings.ToLower(get("SHIFTLOG_CREDENTIALS", "keyring")),
		CredentialsFile:   get("SHIFTLOG_CREDENTIALS_FILE", filepath.Join(dataDir, "credentials.json")),
		LogLevel:          get("LOG_LEVEL", "info"),
		LogFile:           get("LOG_FILE", ""),
		MetricsAddr:       get("METRICS_ADDR", ""),
		GoogleAPIKey:      get("GOOGLE_API_KEY", ""),
		CalDAV: CalDAV{
			URL:          get("CALDAV_URL", DefaultCalDAVURL),
			Username:     get("CALDAV_USERNAME", ""),
			Password:     get("CALDAV_PASSWORD", ""),
			CalendarName: get("CALDAV_CALENDAR_NAME", DefaultCalDAVCalendar),
		},
	}

	cfg.GoogleHolidayCalendarID = get("GOOGLE_HOLIDAY_CALENDAR_ID", DefaultHolidayCalendarID)

	defaultBackend := BackendSQLite
	if cfg.FirebaseProjectID != "" {
		defaultBackend = BackendFirestore
	}
	cfg.Backend = strings.ToLower(get("SHIFTLOG_BACKEND", defaultBackend))
	cfg.AppID = get("SHIFTLOG_APP_ID", get("FIREBASE_PROJECT_ID", DefaultAppID))

	if centers := get("SHIFTLOG_CENTERS", ""); centers != "" {
		for _, c := range strings.Split(centers, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.Centers = append(cfg.Centers, c)
			}
		}
	}

	tz := get("PRIMARY_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", tz, err)
	}
	cfg.Location = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID environment variable not set")
		}
		if c.FirebaseAPIKey == "" {
			return fmt.Errorf("FIREBASE_API_KEY environment variable not set")
		}
	case BackendNATS:
		if c.NATSURL == "" {
			return fmt.Errorf("NATS_URL environment variable not set")
		}
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("SHIFTLOG_DB environment variable not set")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown backend '%s'", c.Backend)
	}

	switch c.Credentials {
	case "keyring", "file":
	default:
		return fmt.Errorf("unknown credential store '%s'", c.Credentials)
	}
	if strings.ContainsAny(c.Namespace, "/") || strings.ContainsAny(c.AppID, "/") {
		return fmt.Errorf("namespace and app id must not contain '/'")
	}
	return nil
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".shiftlog"
	}
	return filepath.Join(dir, "shiftlog")
}
