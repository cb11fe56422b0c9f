package calendar

import (
	"time"

	"shiftlog/internal/datekey"
	"shiftlog/internal/holidays"
	"shiftlog/internal/models"
)

// Summary holds the attendance counts of one month.
type Summary struct {
	WorkedDays            int
	WorkedHolidayDays     int
	WeekendOrHolidayDays  int
	CurrentWeekWorkedDays int
	TotalDaysInMonth      int
}

// MonthlySummary counts the logs falling in month. Worked holidays use the
// flag stored with each log, so they reflect the calendar in force when the
// day was saved.
func MonthlySummary(month time.Time, logs []models.WorkLog, today time.Time, cal *holidays.Calendar) Summary {
	var s Summary
	for _, l := range logs {
		if !datekey.SameMonth(l.Date, month) {
			continue
		}
		s.WorkedDays++
		if l.IsWeekendOrHoliday {
			s.WorkedHolidayDays++
		}
		if datekey.SameWeek(l.Date, today) {
			s.CurrentWeekWorkedDays++
		}
	}

	for _, d := range MonthGrid(month).Days {
		if cal.IsWeekendOrHoliday(d.Date) {
			s.WeekendOrHolidayDays++
		}
	}
	s.TotalDaysInMonth = datekey.DaysInMonth(month)
	return s
}
