// Package app constructs and wires every component from a Config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"

	"shiftlog/internal/calendar"
	"shiftlog/internal/config"
	"shiftlog/internal/firebase"
	"shiftlog/internal/firestore"
	"shiftlog/internal/holidays"
	"shiftlog/internal/identity"
	"shiftlog/internal/metrics"
	"shiftlog/internal/natskv"
	"shiftlog/internal/remote"
	"shiftlog/internal/sqlitestore"
	"shiftlog/internal/syncer"
	"shiftlog/internal/worklog"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Holidays  *holidays.Calendar
	Session   *identity.Session
	Remote    remote.Store
	Mirror    *worklog.Mirror
	Syncer    *syncer.Syncer
	Store     *worklog.Store
	Selection *calendar.Selection
	Deriver   *calendar.Deriver
}

// New builds every component. Nothing is started until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	cal, err := LoadHolidays(cfg)
	if err != nil {
		return nil, err
	}

	provider := Provider(cfg)
	var rs remote.Store
	switch cfg.Backend {
	case config.BackendFirestore:
		auth := provider.(*firebase.Auth)
		rs, err = firestore.New(ctx, logger, cfg.FirebaseProjectID, option.WithTokenSource(auth.TokenSource()))
	case config.BackendNATS:
		rs, err = natskv.Connect(ctx, logger, cfg.NATSURL, cfg.NATSBucket)
	case config.BackendSQLite:
		rs, err = sqlitestore.Open(ctx, logger, cfg.DBPath)
	case config.BackendMemory:
		rs = remote.NewMemoryStore()
	default:
		err = fmt.Errorf("unknown backend '%s'", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return Assemble(cfg, logger, provider, rs, cal), nil
}

// Assemble wires the engine around an identity provider and a store.
func Assemble(cfg *config.Config, logger *slog.Logger, provider identity.Provider, rs remote.Store, cal *holidays.Calendar) *App {
	m := metrics.New()
	paths := remote.Paths{Namespace: cfg.Namespace, AppID: cfg.AppID}
	mirror := worklog.NewMirror()
	engine := syncer.NewSyncer(logger, rs, mirror, paths, cfg.Location, m)
	store := worklog.NewStore(logger, rs, paths, engine, mirror, worklog.Options{
		Holidays: cal,
		Centers:  cfg.Centers,
		Metrics:  m,
	})
	now := func() time.Time { return time.Now().In(cfg.Location) }
	selection := calendar.NewSelection(now())

	return &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   m,
		Holidays:  cal,
		Session:   identity.NewSession(logger, provider),
		Remote:    rs,
		Mirror:    mirror,
		Syncer:    engine,
		Store:     store,
		Selection: selection,
		Deriver:   calendar.NewDeriver(mirror, selection, cal, now),
	}
}

// Start binds the sync engine to the session and starts the session.
func (a *App) Start(ctx context.Context) error {
	a.Syncer.Bind(ctx, a.Session)
	return a.Session.Start(ctx)
}

// WaitReady blocks until a user is signed in and their first snapshot arrived.
func (a *App) WaitReady(ctx context.Context) error {
	uid, err := a.Session.WaitAuthenticated(ctx)
	if err != nil {
		return err
	}
	if err := a.Mirror.WaitSynced(ctx); err != nil {
		return fmt.Errorf("waiting for work logs of %s: %w", uid, err)
	}
	a.Logger.Debug("Work logs ready.", "uid", uid, "records", a.Mirror.Len())
	return nil
}

// Close tears everything down in reverse order.
func (a *App) Close() error {
	a.Deriver.Close()
	a.Syncer.Close()
	a.Session.Stop()
	return a.Remote.Close()
}

// LoadHolidays returns the built-in calendar merged with the configured file.
func LoadHolidays(cfg *config.Config) (*holidays.Calendar, error) {
	cal := holidays.Default()
	if cfg.HolidaysFile == "" {
		return cal, nil
	}
	loaded, err := holidays.LoadFile(cfg.HolidaysFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	return cal.Merge(loaded), nil
}

// Provider returns the identity provider for the configured backend:
// Firebase accounts for Firestore, locally issued ids otherwise.
func Provider(cfg *config.Config) identity.Provider {
	creds := Credentials(cfg)
	if cfg.Backend == config.BackendFirestore {
		return firebase.NewAuth(cfg.FirebaseAPIKey, creds, nil)
	}
	return identity.NewLocalProvider(creds)
}

// Credentials returns the configured credential store.
func Credentials(cfg *config.Config) identity.CredentialStore {
	if cfg.Credentials == "file" {
		return &identity.FileStore{Path: cfg.CredentialsFile}
	}
	return identity.NewKeyringStore("shiftlog-" + cfg.AppID)
}
