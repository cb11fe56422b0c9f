package worklog

import (
	"context"
	"sort"
	"sync"

	"shiftlog/internal/models"
	"shiftlog/internal/observe"
)

// Mirror is the local copy of one user's work-log collection. Its contents
// are only ever replaced wholesale, and only by the sync engine.
type Mirror struct {
	mu     sync.RWMutex
	epoch  uint64
	logs   map[string]models.WorkLog
	synced bool

	changes observe.Notifier[struct{}]
}

// NewMirror returns an empty, unsynced mirror.
func NewMirror() *Mirror {
	return &Mirror{logs: make(map[string]models.WorkLog)}
}

// Reset empties the mirror and makes epoch the only one Apply accepts.
func (m *Mirror) Reset(epoch uint64) {
	m.mu.Lock()
	m.epoch = epoch
	m.logs = make(map[string]models.WorkLog)
	m.synced = false
	m.mu.Unlock()

	m.changes.Publish(struct{}{})
}

// Apply replaces the contents with logs if epoch is still current.
// It reports whether the snapshot was applied.
func (m *Mirror) Apply(epoch uint64, logs []models.WorkLog) bool {
	next := make(map[string]models.WorkLog, len(logs))
	for _, l := range logs {
		next[l.ID] = l
	}

	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		return false
	}
	m.logs = next
	m.synced = true
	m.mu.Unlock()

	m.changes.Publish(struct{}{})
	return true
}

// Epoch returns the epoch set by the last Reset.
func (m *Mirror) Epoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// Snapshot returns the current logs ordered by id.
func (m *Mirror) Snapshot() []models.WorkLog {
	m.mu.RLock()
	out := make([]models.WorkLog, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the log stored under id.
func (m *Mirror) Get(id string) (models.WorkLog, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.logs[id]
	return l, ok
}

// Has reports whether a log with id is mirrored.
func (m *Mirror) Has(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Len returns the number of mirrored logs.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.logs)
}

// Synced reports whether a snapshot arrived since the last Reset.
func (m *Mirror) Synced() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.synced
}

// WaitSynced blocks until a snapshot has been applied or ctx is done.
func (m *Mirror) WaitSynced(ctx context.Context) error {
	return m.WaitFor(ctx, m.Synced)
}

// WaitFor blocks until cond holds, re-checking it after every change.
func (m *Mirror) WaitFor(ctx context.Context, cond func() bool) error {
	wake := make(chan struct{}, 1)
	cancel := m.OnChange(func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer cancel()

	for !cond() {
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// OnChange registers fn to run after every Reset or applied snapshot.
// Listeners read the current contents; nothing is passed to them.
func (m *Mirror) OnChange(fn func()) (cancel func()) {
	return m.changes.Subscribe(func(struct{}) { fn() })
}
