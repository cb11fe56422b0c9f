package holidays

import (
	"sort"
	"time"

	"shiftlog/internal/datekey"
)

// Holiday is a single non-working calendar day.
type Holiday struct {
	Date string `yaml:"date"` // date key, YYYY-MM-DD
	Name string `yaml:"name,omitempty"`
}

// Calendar answers weekend and holiday questions for calendar days.
// It is immutable once built and safe for concurrent use.
type Calendar struct {
	days map[string]string
}

// New builds a calendar from date keys. Invalid keys are ignored.
func New(keys ...string) *Calendar {
	hs := make([]Holiday, 0, len(keys))
	for _, k := range keys {
		hs = append(hs, Holiday{Date: k})
	}
	return FromHolidays(hs)
}

// FromHolidays builds a calendar from named holidays. Invalid dates are
// ignored; a later entry for the same date keeps the first non-empty name.
func FromHolidays(hs []Holiday) *Calendar {
	c := &Calendar{days: make(map[string]string, len(hs))}
	for _, h := range hs {
		if !datekey.Valid(h.Date) {
			continue
		}
		if name, ok := c.days[h.Date]; ok && name != "" {
			continue
		}
		c.days[h.Date] = h.Name
	}
	return c
}

// Default returns the Spanish national holidays of 2025.
func Default() *Calendar {
	return FromHolidays([]Holiday{
		{Date: "2025-01-01", Name: "Año Nuevo"},
		{Date: "2025-01-06", Name: "Epifanía del Señor"},
		{Date: "2025-04-18", Name: "Viernes Santo"},
		{Date: "2025-05-01", Name: "Fiesta del Trabajo"},
		{Date: "2025-08-15", Name: "Asunción de la Virgen"},
		{Date: "2025-10-12", Name: "Fiesta Nacional de España"},
		{Date: "2025-11-01", Name: "Todos los Santos"},
		{Date: "2025-12-06", Name: "Día de la Constitución"},
		{Date: "2025-12-08", Name: "Inmaculada Concepción"},
		{Date: "2025-12-25", Name: "Navidad"},
	})
}

// IsWeekend reports whether t is a Saturday or a Sunday.
func (c *Calendar) IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday reports whether t's date key is a configured holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	if c == nil {
		return false
	}
	_, ok := c.days[datekey.Key(t)]
	return ok
}

// IsWeekendOrHoliday is the value snapshotted into a work log at save time.
func (c *Calendar) IsWeekendOrHoliday(t time.Time) bool {
	return c.IsWeekend(t) || c.IsHoliday(t)
}

// Name returns the holiday name for t, if t is a holiday.
func (c *Calendar) Name(t time.Time) (string, bool) {
	if c == nil {
		return "", false
	}
	name, ok := c.days[datekey.Key(t)]
	return name, ok
}

// Holidays returns all holidays ordered by date.
func (c *Calendar) Holidays() []Holiday {
	if c == nil {
		return nil
	}
	out := make([]Holiday, 0, len(c.days))
	for k, name := range c.days {
		out = append(out, Holiday{Date: k, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Len returns the number of holidays.
func (c *Calendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.days)
}

// Merge returns a new calendar holding the holidays of c and other.
func (c *Calendar) Merge(other *Calendar) *Calendar {
	return FromHolidays(append(c.Holidays(), other.Holidays()...))
}
