package calendar

import (
	"sync"
	"time"

	"shiftlog/internal/datekey"
	"shiftlog/internal/observe"
)

// Selection is the month currently displayed. It always holds the first
// day of a month.
type Selection struct {
	mu      sync.Mutex
	month   time.Time
	changes observe.Notifier[time.Time]
}

// NewSelection selects the month containing t.
func NewSelection(t time.Time) *Selection {
	return &Selection{month: datekey.MonthStart(t)}
}

// Current returns the first day of the selected month.
func (s *Selection) Current() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.month
}

// Set selects the month containing t.
func (s *Selection) Set(t time.Time) {
	s.update(func(time.Time) time.Time { return datekey.MonthStart(t) })
}

// Next selects the following month.
func (s *Selection) Next() {
	s.update(func(m time.Time) time.Time { return m.AddDate(0, 1, 0) })
}

// Previous selects the preceding month.
func (s *Selection) Previous() {
	s.update(func(m time.Time) time.Time { return m.AddDate(0, -1, 0) })
}

// OnChange registers fn to be called with the newly selected month.
func (s *Selection) OnChange(fn func(time.Time)) (cancel func()) {
	return s.changes.Subscribe(fn)
}

func (s *Selection) update(fn func(time.Time) time.Time) {
	s.mu.Lock()
	prev := s.month
	// Stepping from the first of a month never overflows into the next one.
	s.month = datekey.MonthStart(fn(prev))
	next := s.month
	s.mu.Unlock()

	if !next.Equal(prev) {
		s.changes.Publish(next)
	}
}
