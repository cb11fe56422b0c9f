// Package worklog holds the mirrored work logs and the operations that
// create and remove them remotely.
package worklog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shiftlog/internal/datekey"
	"shiftlog/internal/errs"
	"shiftlog/internal/holidays"
	"shiftlog/internal/metrics"
	"shiftlog/internal/models"
	"shiftlog/internal/remote"
)

// DefaultCenters are offered when no centers are configured. The first one
// is the default for new records.
var DefaultCenters = []string{"Urgencias General", "Maternidad"}

// Identity supplies the uid that writes are addressed to.
type Identity interface {
	UID() string
}

// Options holds the optional collaborators of a Store.
type Options struct {
	Holidays *holidays.Calendar
	Centers  []string
	Metrics  *metrics.Metrics
}

// Store proxies work-log mutations to the remote collection and answers
// reads from the mirror. Writes are never applied to the mirror directly;
// they show up once the next snapshot arrives.
type Store struct {
	logger   *slog.Logger
	remote   remote.Store
	paths    remote.Paths
	identity Identity
	mirror   *Mirror
	holidays *holidays.Calendar
	centers  []string
	metrics  *metrics.Metrics
}

// NewStore creates a Store writing through rs for the uid reported by id.
func NewStore(logger *slog.Logger, rs remote.Store, paths remote.Paths, id Identity, mirror *Mirror, opts Options) *Store {
	centers := opts.Centers
	if len(centers) == 0 {
		centers = DefaultCenters
	}
	cal := opts.Holidays
	if cal == nil {
		cal = holidays.Default()
	}
	return &Store{
		logger:   logger,
		remote:   rs,
		paths:    paths,
		identity: id,
		mirror:   mirror,
		holidays: cal,
		centers:  centers,
		metrics:  opts.Metrics,
	}
}

// NewWorkLog builds the record for the day of date, snapshotting the
// calendar's weekend-or-holiday verdict.
func NewWorkLog(date time.Time, center string, cal *holidays.Calendar) models.WorkLog {
	return models.WorkLog{
		ID:                 datekey.Key(date),
		Date:               datekey.Midnight(date),
		Center:             center,
		IsWeekendOrHoliday: cal.IsWeekendOrHoliday(date),
	}
}

// Save writes log to the remote collection, replacing any record for the same day.
func (s *Store) Save(ctx context.Context, log models.WorkLog) error {
	if err := validate(log); err != nil {
		return err
	}

	uid := s.identity.UID()
	if uid == "" {
		s.logger.Warn("Cannot save work log without an authenticated user.", "id", log.ID)
		return fmt.Errorf("%w: no authenticated user", errs.ErrPersistence)
	}

	err := s.remote.Put(ctx, s.paths.Document(uid, log.ID), log.Record())
	s.metrics.Write("put", err)
	if err != nil {
		s.logger.Error("Failed to save work log", "id", log.ID, "error", err)
		return fmt.Errorf("%w: save %s: %v", errs.ErrPersistence, log.ID, err)
	}
	s.logger.Debug("Saved work log.", "id", log.ID, "center", log.Center)
	return nil
}

// Delete removes the record with id. Deleting a day that was never worked
// is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !datekey.Valid(id) {
		return fmt.Errorf("%w: invalid date key %q", errs.ErrValidation, id)
	}

	uid := s.identity.UID()
	if uid == "" {
		s.logger.Warn("Cannot delete work log without an authenticated user.", "id", id)
		return fmt.Errorf("%w: no authenticated user", errs.ErrPersistence)
	}

	err := s.remote.Delete(ctx, s.paths.Document(uid, id))
	s.metrics.Write("delete", err)
	if err != nil {
		s.logger.Error("Failed to delete work log", "id", id, "error", err)
		return fmt.Errorf("%w: delete %s: %v", errs.ErrPersistence, id, err)
	}
	s.logger.Debug("Deleted work log.", "id", id)
	return nil
}

// IsDayWorked reports whether the mirror holds a record for the day of t.
func (s *Store) IsDayWorked(t time.Time) bool {
	return s.mirror.Has(datekey.Key(t))
}

// Lookup returns the mirrored record for the day of t.
func (s *Store) Lookup(t time.Time) (models.WorkLog, bool) {
	return s.mirror.Get(datekey.Key(t))
}

// MarkWorked saves the day of date at center.
func (s *Store) MarkWorked(ctx context.Context, date time.Time, center string) error {
	return s.Save(ctx, NewWorkLog(date, center, s.holidays))
}

// SetDay applies a worked/not-worked decision for one day. Marking a day
// that is not worked as not worked makes no remote call.
func (s *Store) SetDay(ctx context.Context, date time.Time, worked bool, center string) error {
	if worked {
		return s.MarkWorked(ctx, date, center)
	}
	if !s.IsDayWorked(date) {
		return nil
	}
	return s.Delete(ctx, datekey.Key(date))
}

// DefaultCenter returns the center preselected for new records.
func (s *Store) DefaultCenter() string {
	return s.centers[0]
}

// Centers returns the frequent centers list.
func (s *Store) Centers() []string {
	return append([]string(nil), s.centers...)
}

// Holidays returns the calendar used for new records.
func (s *Store) Holidays() *holidays.Calendar {
	return s.holidays
}

// Mirror returns the mirror reads are answered from.
func (s *Store) Mirror() *Mirror {
	return s.mirror
}

func validate(log models.WorkLog) error {
	if strings.TrimSpace(log.Center) == "" {
		return fmt.Errorf("%w: center is required", errs.ErrValidation)
	}
	if !datekey.Valid(log.ID) {
		return fmt.Errorf("%w: invalid date key %q", errs.ErrValidation, log.ID)
	}
	if datekey.Key(log.Date) != log.ID {
		return fmt.Errorf("%w: date %s does not match id %s", errs.ErrValidation, datekey.Key(log.Date), log.ID)
	}
	return nil
}
