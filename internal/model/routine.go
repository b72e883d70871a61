package model

import (
	"encoding/json"
	"slices"
	"time"
)

// TimeOfDay tags when during the day a routine is meant to happen.
type TimeOfDay string

const (
	TimeMorning TimeOfDay = "morning"
	TimeAllDay  TimeOfDay = "allday"
	TimeEvening TimeOfDay = "evening"
	TimeNight   TimeOfDay = "night"
)

// Rank orders tags for display. Empty and unknown tags rank with allday.
func (t TimeOfDay) Rank() int {
	switch t {
	case TimeMorning:
		return 0
	case TimeEvening:
		return 2
	case TimeNight:
		return 3
	default:
		return 1
	}
}

// Weekdays is a routine's schedule: distinct weekday numbers, Sunday=0.
type Weekdays []int

// NewWeekdays normalizes days: out-of-range values and duplicates are
// dropped and the result is sorted.
func NewWeekdays(days ...int) Weekdays {
	var seen [7]bool
	out := Weekdays{}
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// EveryDay is the full seven-day schedule.
func EveryDay() Weekdays {
	return NewWeekdays(0, 1, 2, 3, 4, 5, 6)
}

// Has reports whether the schedule includes the weekday.
func (w Weekdays) Has(day time.Weekday) bool {
	return slices.Contains(w, int(day))
}

// IsEveryDay reports whether all seven weekdays are scheduled.
func (w Weekdays) IsEveryDay() bool {
	return len(NewWeekdays(w...)) == 7
}

// Labels returns short day names, e.g. ["Mon", "Wed"].
func (w Weekdays) Labels() []string {
	labels := make([]string, 0, len(w))
	for _, d := range NewWeekdays(w...) {
		labels = append(labels, time.Weekday(d).String()[:3])
	}
	return labels
}

// UnmarshalJSON accepts any JSON value. Anything that is not an array of
// integers decodes to an empty schedule rather than failing.
func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*w = Weekdays{}
		return nil
	}
	days := make([]int, 0, len(raw))
	for _, r := range raw {
		var d int
		if err := json.Unmarshal(r, &d); err != nil {
			continue
		}
		days = append(days, d)
	}
	*w = NewWeekdays(days...)
	return nil
}

type Routine struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	Days        Weekdays  `json:"days"`
	TimeOfDay   TimeOfDay `json:"time_of_day"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsEveryDay reports whether the routine belongs on the everyday track.
func (r Routine) IsEveryDay() bool {
	return r.Days.IsEveryDay()
}

// TimesPerWeek is the number of scheduled weekdays.
func (r Routine) TimesPerWeek() int {
	return len(NewWeekdays(r.Days...))
}

// RoutineFields are the user-editable parts of a routine.
type RoutineFields struct {
	Name        string
	Description string
	Color       string
	Icon        string
	Days        Weekdays
	TimeOfDay   TimeOfDay
}

type Completion struct {
	Date      string    `json:"date"`
	RoutineID string    `json:"routine_id"`
	Done      bool      `json:"done"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompletionKey is the storage key for a (date, routine) slot.
func CompletionKey(date, routineID string) string {
	return date + "_" + routineID
}

// CompletionMap is a sparse snapshot of completions: date -> routine ID -> done.
type CompletionMap map[string]map[string]bool

// Set records a value, allocating the inner map as needed.
func (m CompletionMap) Set(date, routineID string, done bool) {
	day, ok := m[date]
	if !ok {
		day = make(map[string]bool)
		m[date] = day
	}
	day[routineID] = done
}

// Palette defaults offered when a routine is created without a color or icon.
var (
	Colors = []string{
		"#7c6ff7", "#3b82f6", "#06b6d4", "#34d399", "#a3e635",
		"#facc15", "#fb923c", "#f87171", "#e879f9", "#f472b6",
	}
	Icons = []string{
		"\U0001F9B7", "\U0001F3CB", "\U0001F4DA", "\U0001F3B5", "\U0001F9D8",
		"☕", "\U0001F4A7", "\U0001F48A", "\U0001F333", "\U0001F6B6",
		"\U0001F9F9", "\U0001F37D", "\U0001F4BB", "\U0001F6CC", "⭐",
	}
)
