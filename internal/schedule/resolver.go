package schedule

import (
	"slices"
	"time"

	"github.com/dukerupert/routiner/internal/model"
)

// Due is the set of routines scheduled on one weekday, split by display track.
type Due struct {
	// Inline routines are shown in the day cell, ordered by time of day.
	Inline []model.Routine
	// EveryDay routines are scheduled all week and shown on the roll-up track.
	EveryDay []model.Routine
}

// Len is the total number of routines due.
func (d Due) Len() int {
	return len(d.Inline) + len(d.EveryDay)
}

// All returns inline routines followed by everyday routines.
func (d Due) All() []model.Routine {
	all := make([]model.Routine, 0, d.Len())
	all = append(all, d.Inline...)
	return append(all, d.EveryDay...)
}

// Resolve returns the routines due on weekday. Collection order is kept for
// the everyday track and used as the tie-breaker for inline ordering.
func Resolve(routines []model.Routine, weekday time.Weekday) Due {
	var due Due
	for _, r := range routines {
		if !r.Days.Has(weekday) {
			continue
		}
		if r.IsEveryDay() {
			due.EveryDay = append(due.EveryDay, r)
		} else {
			due.Inline = append(due.Inline, r)
		}
	}
	slices.SortStableFunc(due.Inline, func(a, b model.Routine) int {
		return a.TimeOfDay.Rank() - b.TimeOfDay.Rank()
	})
	return due
}

// Week resolves all seven weekdays at once, indexed by time.Weekday.
func Week(routines []model.Routine) [7]Due {
	var week [7]Due
	for d := time.Sunday; d <= time.Saturday; d++ {
		week[d] = Resolve(routines, d)
	}
	return week
}

// EveryDayRoutines returns the routines on the roll-up track, in collection order.
func EveryDayRoutines(routines []model.Routine) []model.Routine {
	var out []model.Routine
	for _, r := range routines {
		if r.IsEveryDay() {
			out = append(out, r)
		}
	}
	return out
}
