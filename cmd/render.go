package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"shiftlog/internal/calendar"
	"shiftlog/internal/datekey"
)

type summaryLabels struct {
	worked, workedHolidays, weekendsHolidays, thisWeek, days string
}

var labels = map[string]summaryLabels{
	"es": {"Días trabajados", "Festivos trabajados", "Fines de semana y festivos", "Esta semana", "Días del mes"},
	"en": {"Worked days", "Worked holidays", "Weekends and holidays", "This week", "Days in month"},
}

// renderMonth prints the month grid with worked days in brackets and today
// marked with an asterisk, followed by the summary.
func renderMonth(w io.Writer, v calendar.View, lang string, now time.Time) {
	l, ok := labels[lang]
	if !ok {
		l = labels["es"]
	}

	fmt.Fprintln(w, calendar.Title(v.Month, lang))
	header := calendar.WeekdayLabels(lang)
	for _, h := range header {
		fmt.Fprintf(w, "%5s", h)
	}
	fmt.Fprintln(w)

	for _, row := range v.Grid.Rows() {
		var b strings.Builder
		for _, d := range row {
			b.WriteString(cell(d, v, now))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	s := v.Summary
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %d\n", l.worked, s.WorkedDays)
	fmt.Fprintf(w, "%s: %d\n", l.workedHolidays, s.WorkedHolidayDays)
	fmt.Fprintf(w, "%s: %d\n", l.weekendsHolidays, s.WeekendOrHolidayDays)
	fmt.Fprintf(w, "%s: %d\n", l.thisWeek, s.CurrentWeekWorkedDays)
	fmt.Fprintf(w, "%s: %d\n", l.days, s.TotalDaysInMonth)
}

func cell(d *calendar.Day, v calendar.View, now time.Time) string {
	if d == nil {
		return "     "
	}
	mark := " "
	if datekey.IsToday(d.Date, now) {
		mark = "*"
	}
	if _, ok := v.Worked[d.Key]; ok {
		return fmt.Sprintf(" [%2d]%s", d.Number, mark)
	}
	return fmt.Sprintf("  %2d %s", d.Number, mark)
}
