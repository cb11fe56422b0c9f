package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"shiftlog/internal/errs"
	"shiftlog/internal/metrics"
	"shiftlog/internal/models"
	"shiftlog/internal/remote"
	"shiftlog/internal/worklog"
)

// ErrClosed is returned by SetIdentity after Close.
var ErrClosed = errors.New("syncer closed")

// Session is the identity source a Syncer follows.
type Session interface {
	UID() string
	OnChange(fn func(uid string)) (cancel func())
}

// Syncer keeps the mirror in step with the remote collection of the
// current identity. At most one subscription is open at any time.
type Syncer struct {
	logger  *slog.Logger
	store   remote.Store
	mirror  *worklog.Mirror
	paths   remote.Paths
	loc     *time.Location
	metrics *metrics.Metrics

	mu      sync.Mutex
	started bool
	closed  bool
	epoch   uint64
	cancel  remote.CancelFunc
	unbind  func()

	// uid is read by writers without taking mu.
	uid atomic.Value
}

// NewSyncer creates a Syncer. Records are decoded in loc.
func NewSyncer(logger *slog.Logger, store remote.Store, mirror *worklog.Mirror, paths remote.Paths, loc *time.Location, m *metrics.Metrics) *Syncer {
	if loc == nil {
		loc = time.Local
	}
	s := &Syncer{
		logger:  logger,
		store:   store,
		mirror:  mirror,
		paths:   paths,
		loc:     loc,
		metrics: m,
	}
	s.uid.Store("")
	return s
}

// Bind follows session: its current uid is applied immediately, then every change.
func (s *Syncer) Bind(ctx context.Context, session Session) {
	unbind := session.OnChange(func(uid string) {
		// Failures are logged by SetIdentity.
		_ = s.SetIdentity(ctx, uid)
	})

	s.mu.Lock()
	prev := s.unbind
	s.unbind = unbind
	s.mu.Unlock()
	if prev != nil {
		prev()
	}

	_ = s.SetIdentity(ctx, session.UID())
}

// UID returns the identity the mirror currently belongs to.
func (s *Syncer) UID() string {
	return s.uid.Load().(string)
}

// Epoch returns the number of identity changes applied so far.
func (s *Syncer) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// SetIdentity switches the mirror to uid. The previous subscription is
// cancelled and the mirror emptied before anything is opened for uid, so
// the mirror never mixes records of two identities. An empty uid leaves
// the mirror empty with no subscription.
func (s *Syncer) SetIdentity(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	// A uid whose subscription failed to open is retried.
	if s.started && uid == s.UID() && (uid == "" || s.cancel != nil) {
		return nil
	}
	s.started = true

	s.cancelLocked()
	s.epoch++
	epoch := s.epoch
	s.uid.Store(uid)
	s.mirror.Reset(epoch)
	s.metrics.MirrorCleared()

	if uid == "" {
		s.logger.Info("No identity, work-log mirror cleared.")
		return nil
	}

	collection := s.paths.Collection(uid)
	s.logger.Info("Opening work-log subscription.", "uid", uid, "collection", collection)
	cancel, err := s.store.Subscribe(ctx, collection, remote.Handler{
		OnSnapshot: s.snapshotHandler(epoch, uid),
		OnError:    s.errorHandler(uid),
	})
	if err != nil {
		err = fmt.Errorf("%w: subscribe %s: %v", errs.ErrSubscription, collection, err)
		s.logger.Error("Failed to open work-log subscription", "uid", uid, "error", err)
		s.metrics.SubscriptionError()
		return err
	}
	s.cancel = cancel
	s.metrics.SubscriptionOpened()
	return nil
}

// Close cancels the subscription and stops following the session.
func (s *Syncer) Close() {
	s.mu.Lock()
	unbind := s.unbind
	s.unbind = nil
	s.closed = true
	s.cancelLocked()
	s.mu.Unlock()

	if unbind != nil {
		unbind()
	}
}

func (s *Syncer) cancelLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.metrics.SubscriptionClosed()
}

// snapshotHandler never takes mu: backends may deliver from inside Subscribe.
func (s *Syncer) snapshotHandler(epoch uint64, uid string) func([]models.Record) {
	return func(recs []models.Record) {
		logs, invalid := models.WorkLogs(recs, s.loc)
		if len(invalid) > 0 {
			s.logger.Warn("Skipped work-log records with invalid ids.", "uid", uid, "ids", invalid)
		}
		if !s.mirror.Apply(epoch, logs) {
			s.logger.Debug("Dropped snapshot of a cancelled subscription.", "uid", uid, "records", len(logs))
			s.metrics.SnapshotDropped()
			return
		}
		s.logger.Debug("Applied work-log snapshot.", "uid", uid, "records", len(logs))
		s.metrics.SnapshotApplied(len(logs))
	}
}

// errorHandler keeps the mirror at its last applied snapshot.
func (s *Syncer) errorHandler(uid string) func(error) {
	return func(err error) {
		err = fmt.Errorf("%w: %v", errs.ErrSubscription, err)
		s.logger.Error("Work-log subscription failed", "uid", uid, "error", err)
		s.metrics.SubscriptionError()
	}
}
