package calendar

import (
	"time"

	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/schedule"
)

// Snapshot is everything the presentation layer needs to draw one month.
type Snapshot struct {
	Month schedule.Month `json:"month"`
	Label string         `json:"label"`
	Grid  Grid           `json:"grid"`
	// Today is the everyday track for the current day. It is only set when
	// the month being shown contains today.
	Today     *TodayTrack   `json:"today,omitempty"`
	Legend    []LegendEntry `json:"legend"`
	Weeks     []WeekBucket  `json:"weeks"`
	Milestone Milestone     `json:"milestone"`
}

// TodayTrack is the roll-up row of everyday routines for today.
type TodayTrack struct {
	Date   string           `json:"date"`
	Checks []schedule.Check `json:"checks"`
}

// Render computes a Snapshot from immutable inputs. It is recomputed on every
// call; nothing is cached between months.
func Render(month schedule.Month, routines []model.Routine, completions model.CompletionMap, now time.Time) Snapshot {
	weeks := WeeklyProgress(month, routines, completions)
	s := Snapshot{
		Month:     month,
		Label:     month.Label(),
		Grid:      BuildGrid(month, routines, completions, now),
		Legend:    Legend(routines),
		Weeks:     weeks,
		Milestone: Evaluate(weeks),
	}
	if day := month.Today(now); day > 0 {
		date := month.Date(day)
		s.Today = &TodayTrack{
			Date:   date,
			Checks: schedule.Overlay(schedule.EveryDayRoutines(routines), completions, date),
		}
	}
	return s
}
