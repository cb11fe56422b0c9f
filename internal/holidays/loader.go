package holidays

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"gopkg.in/yaml.v3"

	"shiftlog/internal/datekey"
)

// file is the YAML document layout for holiday files.
type file struct {
	Holidays []Holiday `yaml:"holidays"`
}

// LoadFile reads a holiday calendar from a .yaml/.yml or .ics file.
func LoadFile(path string) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading holiday file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ics", ".ical":
		hs, err := DecodeICS(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parsing holiday file %s: %w", path, err)
		}
		return FromHolidays(hs), nil
	case ".yaml", ".yml":
		var f file
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing holiday file %s: %w", path, err)
		}
		for _, h := range f.Holidays {
			if !datekey.Valid(h.Date) {
				return nil, fmt.Errorf("holiday file %s: invalid date %q", path, h.Date)
			}
		}
		return FromHolidays(f.Holidays), nil
	default:
		return nil, fmt.Errorf("unsupported holiday file type %q", filepath.Ext(path))
	}
}

// WriteYAML stores the calendar as a YAML holiday file.
func WriteYAML(path string, c *Calendar) error {
	data, err := yaml.Marshal(file{Holidays: c.Holidays()})
	if err != nil {
		return fmt.Errorf("marshalling holidays: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating holiday directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing holiday file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving holiday file: %w", err)
	}
	return nil
}

// DecodeICS extracts the days of every all-day VEVENT in an iCalendar
// stream. Multi-day events contribute each day they cover. Timed events are
// observances and are skipped.
func DecodeICS(r io.Reader) ([]Holiday, error) {
	dec := ical.NewDecoder(r)
	var out []Holiday
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, ev := range cal.Events() {
			if !allDay(ev.Props.Get(ical.PropDateTimeStart)) {
				continue
			}
			start, err := ev.DateTimeStart(time.Local)
			if err != nil {
				continue
			}
			name, _ := ev.Props.Text(ical.PropSummary)

			end, err := ev.DateTimeEnd(time.Local)
			if err != nil || !end.After(start) {
				end = start.AddDate(0, 0, 1)
			}
			for d := datekey.Midnight(start); d.Before(end); d = d.AddDate(0, 0, 1) {
				out = append(out, Holiday{Date: datekey.Key(d), Name: name})
			}
		}
	}
	return out, nil
}

func allDay(p *ical.Prop) bool {
	if p == nil {
		return false
	}
	return p.ValueType() == ical.ValueDate || len(p.Value) == len("20060102")
}
