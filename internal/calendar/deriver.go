package calendar

import (
	"sync"
	"time"

	"shiftlog/internal/datekey"
	"shiftlog/internal/holidays"
	"shiftlog/internal/models"
	"shiftlog/internal/observe"
)

// LogSource is the observable set of work logs.
type LogSource interface {
	Snapshot() []models.WorkLog
	OnChange(fn func()) (cancel func())
}

// View is everything derived for the selected month.
type View struct {
	Month   time.Time
	Grid    Grid
	Summary Summary
	// Worked holds the month's logs by date key.
	Worked map[string]models.WorkLog
}

// Deriver recomputes the View whenever the logs or the selected month change.
type Deriver struct {
	logs      LogSource
	selection *Selection
	holidays  *holidays.Calendar
	now       func() time.Time

	// run serializes recomputation so views are published in order.
	run     sync.Mutex
	mu      sync.RWMutex
	latest  View
	changes observe.Notifier[View]
	cancels []func()
}

// NewDeriver computes the first View and starts following logs and selection.
// A nil now uses time.Now.
func NewDeriver(logs LogSource, selection *Selection, cal *holidays.Calendar, now func() time.Time) *Deriver {
	if now == nil {
		now = time.Now
	}
	d := &Deriver{logs: logs, selection: selection, holidays: cal, now: now}
	d.Recompute()
	d.cancels = []func(){
		logs.OnChange(d.Recompute),
		selection.OnChange(func(time.Time) { d.Recompute() }),
	}
	return d
}

// Recompute derives a View from the current logs and selection.
func (d *Deriver) Recompute() {
	d.run.Lock()
	defer d.run.Unlock()

	month := d.selection.Current()
	logs := d.logs.Snapshot()
	v := View{
		Month:   month,
		Grid:    MonthGrid(month),
		Summary: MonthlySummary(month, logs, d.now(), d.holidays),
		Worked:  make(map[string]models.WorkLog),
	}
	for _, l := range logs {
		if datekey.SameMonth(l.Date, month) {
			v.Worked[l.ID] = l
		}
	}

	d.mu.Lock()
	d.latest = v
	d.mu.Unlock()
	d.changes.Publish(v)
}

// Latest returns the most recent View.
func (d *Deriver) Latest() View {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest
}

// OnChange registers fn to receive every recomputed View.
func (d *Deriver) OnChange(fn func(View)) (cancel func()) {
	return d.changes.Subscribe(fn)
}

// Close stops following the inputs.
func (d *Deriver) Close() {
	for _, c := range d.cancels {
		c()
	}
	d.cancels = nil
}
