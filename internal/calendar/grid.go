// Package calendar derives the month grid and attendance summary shown for
// the selected month, and recomputes them whenever their inputs change.
package calendar

import (
	"time"

	"shiftlog/internal/datekey"
)

// Day is one numbered cell of a month grid.
type Day struct {
	Number int
	Date   time.Time
	Key    string
}

// Grid lays a month out in Monday-first weeks.
type Grid struct {
	Month       time.Time
	Days        []Day
	LeadingPad  int
	TrailingPad int
}

// MonthGrid builds the grid of the month containing month.
func MonthGrid(month time.Time) Grid {
	first := datekey.MonthStart(month)
	n := datekey.DaysInMonth(first)

	days := make([]Day, n)
	for i := range days {
		d := time.Date(first.Year(), first.Month(), i+1, 0, 0, 0, 0, first.Location())
		days[i] = Day{Number: i + 1, Date: d, Key: datekey.Key(d)}
	}

	leading := (int(first.Weekday()) + 6) % 7
	return Grid{
		Month:       first,
		Days:        days,
		LeadingPad:  leading,
		TrailingPad: (7 - (n+leading)%7) % 7,
	}
}

// Rows splits the grid into weeks of seven cells. Padding cells are nil.
func (g Grid) Rows() [][]*Day {
	cells := make([]*Day, 0, g.LeadingPad+len(g.Days)+g.TrailingPad)
	for i := 0; i < g.LeadingPad; i++ {
		cells = append(cells, nil)
	}
	for i := range g.Days {
		cells = append(cells, &g.Days[i])
	}
	for i := 0; i < g.TrailingPad; i++ {
		cells = append(cells, nil)
	}

	rows := make([][]*Day, 0, len(cells)/7)
	for i := 0; i+7 <= len(cells); i += 7 {
		rows = append(rows, cells[i:i+7])
	}
	return rows
}
