package models

import (
	"fmt"
	"time"

	"shiftlog/internal/datekey"
)

// WorkLog represents one worked calendar day.
// This is the in-process representation, independent of any storage backend.
type WorkLog struct {
	ID                 string    // Date key (YYYY-MM-DD), primary key in the remote collection
	Date               time.Time // Local midnight of the same day as ID
	Center             string    // Work location, required
	IsWeekendOrHoliday bool      // Holiday calendar verdict at save time
}

// Record is the persisted shape of a WorkLog, one document per date key.
type Record struct {
	ID                 string `json:"id" firestore:"id"`
	Date               int64  `json:"date" firestore:"date"` // epoch milliseconds, local midnight
	Center             string `json:"center" firestore:"center"`
	IsWeekendOrHoliday bool   `json:"isWeekendOrHoliday" firestore:"isWeekendOrHoliday"`
}

// Record converts the log to its wire form.
func (w WorkLog) Record() Record {
	return Record{
		ID:                 w.ID,
		Date:               datekey.EpochMillis(w.Date),
		Center:             w.Center,
		IsWeekendOrHoliday: w.IsWeekendOrHoliday,
	}
}

// WorkLog decodes the record in loc. The id is authoritative: Date is local
// midnight of the id's day, whatever zone the stored timestamp came from.
func (r Record) WorkLog(loc *time.Location) (WorkLog, error) {
	date, err := datekey.Parse(r.ID, loc)
	if err != nil {
		return WorkLog{}, fmt.Errorf("record %q: %w", r.ID, err)
	}
	return WorkLog{
		ID:                 r.ID,
		Date:               date,
		Center:             r.Center,
		IsWeekendOrHoliday: r.IsWeekendOrHoliday,
	}, nil
}

// WorkLogs decodes a batch of records. Records whose id is not a date key
// are skipped and their ids returned in invalid.
func WorkLogs(records []Record, loc *time.Location) (logs []WorkLog, invalid []string) {
	logs = make([]WorkLog, 0, len(records))
	for _, r := range records {
		l, err := r.WorkLog(loc)
		if err != nil {
			invalid = append(invalid, r.ID)
			continue
		}
		logs = append(logs, l)
	}
	return logs, invalid
}
