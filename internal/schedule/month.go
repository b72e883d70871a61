package schedule

import (
	"fmt"
	"time"
)

// Month identifies a calendar month in the host's local calendar.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Current returns the month containing the host's local now.
func Current() Month {
	return MonthOf(time.Now())
}

// Years outside this range do not format as four-digit YYYY-MM-DD dates.
const (
	MinYear = 1
	MaxYear = 9999
)

// Valid reports whether the month number is within 1..12 and the year
// within MinYear..MaxYear.
func (m Month) Valid() bool {
	return m.Month >= time.January && m.Month <= time.December &&
		m.Year >= MinYear && m.Year <= MaxYear
}

// FirstWeekday is the weekday of day 1.
func (m Month) FirstWeekday() time.Weekday {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.Local).Weekday()
}

// Days is the number of days in the month.
func (m Month) Days() int {
	// Day 0 of the following month normalizes to the last day of this one.
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.Local).Day()
}

// Weekday returns the weekday of the given 1-based day.
func (m Month) Weekday(day int) time.Weekday {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.Local).Weekday()
}

// Date formats the given day as YYYY-MM-DD.
func (m Month) Date(day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", m.Year, int(m.Month), day)
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.Local))
}

// Prev returns the preceding month.
func (m Month) Prev() Month {
	return MonthOf(time.Date(m.Year, m.Month-1, 1, 0, 0, 0, 0, time.Local))
}

// Today returns the day number of now within m, or 0 if now is in another month.
func (m Month) Today(now time.Time) int {
	if now.Year() != m.Year || now.Month() != m.Month {
		return 0
	}
	return now.Day()
}

// Label renders the month for display, e.g. "March 2024".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// DateRange returns the first and last date strings used to query a month's
// completions. The upper bound is always day 31 so the comparison is purely
// lexical.
func (m Month) DateRange() (string, string) {
	prefix := fmt.Sprintf("%04d-%02d-", m.Year, int(m.Month))
	return prefix + "01", prefix + "31"
}

// DateString formats t as YYYY-MM-DD in its own location.
func DateString(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string in the host's local calendar.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
