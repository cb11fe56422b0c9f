// Package sqlitestore keeps work logs in a local SQLite database for
// single-user use without a network backend.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"shiftlog/internal/models"
	"shiftlog/internal/remote"
)

// DefaultPollInterval is how often subscriptions look for writes made by
// other processes sharing the database file.
const DefaultPollInterval = 2 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS work_logs (
	collection            TEXT    NOT NULL,
	id                    TEXT    NOT NULL,
	date                  INTEGER NOT NULL,
	center                TEXT    NOT NULL,
	is_weekend_or_holiday INTEGER NOT NULL DEFAULT 0,
	updated_at            INTEGER NOT NULL,
	PRIMARY KEY (collection, id)
);`

// Store is a remote.Store over a SQLite file.
type Store struct {
	logger       *slog.Logger
	path         string
	db           *sql.DB
	pollInterval time.Duration

	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
}

type subscription struct {
	collection string
	wake       chan struct{}
}

// Open opens or creates the database at path.
func Open(ctx context.Context, logger *slog.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Debug("Opened SQLite store.", "path", path)

	return &Store{
		logger:       logger,
		path:         path,
		db:           db,
		pollInterval: DefaultPollInterval,
		subs:         make(map[int]*subscription),
	}, nil
}

// SetPollInterval changes how often subscriptions re-read the table.
func (s *Store) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// Subscribe delivers the collection's contents now and whenever they change.
func (s *Store) Subscribe(ctx context.Context, collection string, h remote.Handler) (remote.CancelFunc, error) {
	sub := &subscription{collection: collection, wake: make(chan struct{}, 1)}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.poll(ctx, sub, h)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			cancel()
			<-done
		})
	}, nil
}

func (s *Store) poll(ctx context.Context, sub *subscription, h remote.Handler) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var last string
	delivered := false
	failing := false
	for {
		recs, err := s.list(ctx, sub.collection)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			// Report once per outage; polling continues.
			if !failing && h.OnError != nil {
				h.OnError(err)
			}
			failing = true
		default:
			failing = false
			if fp := fingerprint(recs); !delivered || fp != last {
				last, delivered = fp, true
				if h.OnSnapshot != nil {
					h.OnSnapshot(recs)
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-sub.wake:
		case <-ticker.C:
		}
	}
}

func (s *Store) list(ctx context.Context, collection string) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, center, is_weekend_or_holiday FROM work_logs WHERE collection = ? ORDER BY id`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query work logs: %w", err)
	}
	defer rows.Close()

	var recs []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Center, &rec.IsWeekendOrHoliday); err != nil {
			return nil, fmt.Errorf("failed to scan work log: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Put upserts the record at path.
func (s *Store) Put(ctx context.Context, path string, rec models.Record) error {
	collection, id, err := remote.SplitDocument(path)
	if err != nil {
		return err
	}
	rec.ID = id
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO work_logs (collection, id, date, center, is_weekend_or_holiday, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			date = excluded.date,
			center = excluded.center,
			is_weekend_or_holiday = excluded.is_weekend_or_holiday,
			updated_at = excluded.updated_at`,
		collection, id, rec.Date, rec.Center, rec.IsWeekendOrHoliday, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save work log: %w", err)
	}
	s.notify(collection)
	return nil
}

// Delete removes the record at path if present.
func (s *Store) Delete(ctx context.Context, path string) error {
	collection, id, err := remote.SplitDocument(path)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM work_logs WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("failed to delete work log: %w", err)
	}
	s.notify(collection)
	return nil
}

// Close closes the database. Subscriptions still open report an error
// until they are cancelled.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.collection != collection {
			continue
		}
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

func fingerprint(recs []models.Record) string {
	var b strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&b, "%s|%d|%s|%t\n", r.ID, r.Date, r.Center, r.IsWeekendOrHoliday)
	}
	return b.String()
}
