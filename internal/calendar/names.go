package calendar

import (
	"fmt"
	"time"
)

var monthNames = map[string][12]string{
	"es": {"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
	"en": {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
}

var weekdayLabels = map[string][7]string{
	"es": {"L", "M", "X", "J", "V", "S", "D"},
	"en": {"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"},
}

// MonthName returns the month name in lang ("es" or "en"). Unknown
// languages fall back to Spanish.
func MonthName(m time.Month, lang string) string {
	names, ok := monthNames[lang]
	if !ok {
		names = monthNames["es"]
	}
	return names[m-1]
}

// Title returns the heading of the month of t, e.g. "marzo 2025".
func Title(t time.Time, lang string) string {
	return fmt.Sprintf("%s %d", MonthName(t.Month(), lang), t.Year())
}

// WeekdayLabels returns the Monday-first column headers.
func WeekdayLabels(lang string) [7]string {
	labels, ok := weekdayLabels[lang]
	if !ok {
		labels = weekdayLabels["es"]
	}
	return labels
}
