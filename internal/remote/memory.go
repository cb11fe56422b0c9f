package remote

import (
	"context"
	"errors"
	"sort"
	"sync"

	"shiftlog/internal/models"
)

// ErrClosed is returned by a MemoryStore after Close.
var ErrClosed = errors.New("store closed")

// MemoryStore is an in-process Store. Snapshots are delivered synchronously
// from Subscribe and from every Put or Delete on the subscribed collection,
// while the store lock is held. Handlers must not call back into the store.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]models.Record
	subs        map[int]*memorySub
	nextID      int
	closed      bool

	// PutErr and DeleteErr, when set, make the next writes fail.
	PutErr    error
	DeleteErr error

	// Counters for assertions.
	Puts       int
	Deletes    int
	Subscribes int
	Cancels    int
}

type memorySub struct {
	collection string
	h          Handler
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]models.Record),
		subs:        make(map[int]*memorySub),
	}
}

// Subscribe delivers the current contents immediately, then every change.
func (s *MemoryStore) Subscribe(ctx context.Context, collection string, h Handler) (CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = &memorySub{collection: collection, h: h}
	s.Subscribes++
	h.snapshot(s.recordsLocked(collection))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				s.Cancels++
			}
		})
	}, nil
}

// Put stores rec at path and notifies subscribers of its collection.
func (s *MemoryStore) Put(ctx context.Context, path string, rec models.Record) error {
	collection, id, err := SplitDocument(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.PutErr != nil {
		return s.PutErr
	}
	s.Puts++
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]models.Record)
		s.collections[collection] = docs
	}
	docs[id] = rec
	s.publishLocked(collection)
	return nil
}

// Delete removes the document at path and notifies subscribers.
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	collection, id, err := SplitDocument(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.Deletes++
	delete(s.collections[collection], id)
	s.publishLocked(collection)
	return nil
}

// Fail delivers err to every subscriber of collection.
func (s *MemoryStore) Fail(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.sortedSubsLocked() {
		if sub.collection == collection {
			sub.h.fail(err)
		}
	}
}

// Active returns the number of open subscriptions.
func (s *MemoryStore) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// ActiveOn returns the number of open subscriptions on collection.
func (s *MemoryStore) ActiveOn(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.subs {
		if sub.collection == collection {
			n++
		}
	}
	return n
}

// Records returns the stored documents of collection ordered by id.
func (s *MemoryStore) Records(collection string) []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordsLocked(collection)
}

// Close drops every subscription.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]*memorySub)
	return nil
}

func (s *MemoryStore) publishLocked(collection string) {
	recs := s.recordsLocked(collection)
	for _, sub := range s.sortedSubsLocked() {
		if sub.collection == collection {
			sub.h.snapshot(recs)
		}
	}
}

func (s *MemoryStore) recordsLocked(collection string) []models.Record {
	docs := s.collections[collection]
	out := make([]models.Record, 0, len(docs))
	for _, rec := range docs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) sortedSubsLocked() []*memorySub {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*memorySub, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}
