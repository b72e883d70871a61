package calendar

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/schedule"
)

var hydrate = model.Routine{
	ID:    "hydrate",
	Name:  "Hydrate",
	Icon:  "\U0001F4A7",
	Color: "#3b82f6",
	Days:  model.NewWeekdays(1, 2, 3, 4, 5),
}

// completeAll marks every scheduled occurrence of r in month as done.
func completeAll(month schedule.Month, r model.Routine) model.CompletionMap {
	c := model.CompletionMap{}
	for day := 1; day <= month.Days(); day++ {
		if r.Days.Has(month.Weekday(day)) {
			c.Set(month.Date(day), r.ID, true)
		}
	}
	return c
}

func eachMonth(t *testing.T, fn func(m schedule.Month)) {
	t.Helper()
	for year := 1995; year <= 2035; year++ {
		for mo := time.January; mo <= time.December; mo++ {
			fn(schedule.Month{Year: year, Month: mo})
		}
	}
}

func TestGridAlwaysFillsWholeWeeks(t *testing.T) {
	eachMonth(t, func(m schedule.Month) {
		g := BuildGrid(m, nil, nil, time.Time{})
		if g.TotalCells()%7 != 0 {
			t.Fatalf("%s: %d + %d + %d is not a multiple of 7", m.Label(), g.Leading, len(g.Cells), g.Trailing)
		}
		if g.Leading != int(m.FirstWeekday()) {
			t.Fatalf("%s: leading = %d, want %d", m.Label(), g.Leading, m.FirstWeekday())
		}
		if g.Trailing < 0 || g.Trailing > 6 {
			t.Fatalf("%s: trailing = %d", m.Label(), g.Trailing)
		}
		if len(g.Cells) != m.Days() {
			t.Fatalf("%s: %d cells, want %d", m.Label(), len(g.Cells), m.Days())
		}
	})
}

func TestGridLeapFebruary(t *testing.T) {
	g := BuildGrid(schedule.Month{Year: 2024, Month: time.February}, nil, nil, time.Time{})
	if len(g.Cells) != 29 {
		t.Errorf("Feb 2024 cells = %d, want 29", len(g.Cells))
	}
	last := g.Cells[len(g.Cells)-1]
	if last.Date != "2024-02-29" {
		t.Errorf("last date = %q, want 2024-02-29", last.Date)
	}

	g = BuildGrid(schedule.Month{Year: 2023, Month: time.February}, nil, nil, time.Time{})
	if len(g.Cells) != 28 {
		t.Errorf("Feb 2023 cells = %d, want 28", len(g.Cells))
	}
}

func TestGridCellsCarryChecks(t *testing.T) {
	month := schedule.Month{Year: 2024, Month: time.March}
	water := model.Routine{ID: "water", Days: model.EveryDay()}
	completions := model.CompletionMap{}
	completions.Set("2024-03-04", "hydrate", true)

	g := BuildGrid(month, []model.Routine{hydrate, water}, completions, time.Time{})

	// March 4 2024 is a Monday.
	mon := g.Cells[3]
	if mon.Weekday != time.Monday {
		t.Fatalf("cell 4 weekday = %s", mon.Weekday)
	}
	if len(mon.Checks) != 1 || !mon.Checks[0].Done {
		t.Errorf("monday checks = %+v", mon.Checks)
	}
	if len(mon.EveryDay) != 1 || mon.EveryDay[0].Done {
		t.Errorf("monday everyday = %+v", mon.EveryDay)
	}

	// March 2 2024 is a Saturday: only the everyday track.
	sat := g.Cells[1]
	if len(sat.Checks) != 0 || len(sat.EveryDay) != 1 {
		t.Errorf("saturday = %+v", sat)
	}
}

func TestGridTodayFlag(t *testing.T) {
	month := schedule.Month{Year: 2024, Month: time.March}
	now := time.Date(2024, time.March, 14, 18, 30, 0, 0, time.Local)

	g := BuildGrid(month, nil, nil, now)
	var flagged []int
	for _, c := range g.Cells {
		if c.Today {
			flagged = append(flagged, c.Day)
		}
	}
	if diff := cmp.Diff([]int{14}, flagged); diff != "" {
		t.Errorf("today flags (-want +got):\n%s", diff)
	}

	g = BuildGrid(month.Next(), nil, nil, now)
	for _, c := range g.Cells {
		if c.Today {
			t.Fatalf("day %d flagged as today in another month", c.Day)
		}
	}
}

func TestGridWeeksRows(t *testing.T) {
	g := BuildGrid(schedule.Month{Year: 2024, Month: time.May}, nil, nil, time.Time{})
	rows := g.Weeks()
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(rows))
	}
	if rows[0][2] != nil || rows[0][3] == nil || rows[0][3].Day != 1 {
		t.Errorf("first row misplaced day 1: %+v", rows[0])
	}
}

func TestWeekSpansPartitionMonth(t *testing.T) {
	eachMonth(t, func(m schedule.Month) {
		spans := WeekSpans(m)
		if len(spans) < 4 || len(spans) > 6 {
			t.Fatalf("%s: %d spans", m.Label(), len(spans))
		}
		if spans[0].Start != 1 {
			t.Fatalf("%s: first span starts at %d", m.Label(), spans[0].Start)
		}
		total := 0
		for i, s := range spans {
			if s.End < s.Start {
				t.Fatalf("%s: empty span %+v", m.Label(), s)
			}
			if i > 0 && s.Start != spans[i-1].End+1 {
				t.Fatalf("%s: span %d not contiguous", m.Label(), i)
			}
			if i > 0 && m.Weekday(s.Start) != time.Sunday {
				t.Fatalf("%s: span %d starts on %s", m.Label(), i, m.Weekday(s.Start))
			}
			total += s.Len()
		}
		if total != m.Days() {
			t.Fatalf("%s: spans cover %d days, want %d", m.Label(), total, m.Days())
		}
		if spans[len(spans)-1].End != m.Days() {
			t.Fatalf("%s: last span ends at %d", m.Label(), spans[len(spans)-1].End)
		}
	})
}

func TestWeekSpansPartialFirstWeek(t *testing.T) {
	spans := WeekSpans(schedule.Month{Year: 2024, Month: time.May})
	want := []Span{{1, 4}, {5, 11}, {12, 18}, {19, 25}, {26, 31}}
	if diff := cmp.Diff(want, spans); diff != "" {
		t.Errorf("May 2024 spans (-want +got):\n%s", diff)
	}

	// September 2024 starts on a Sunday: no partial first week.
	spans = WeekSpans(schedule.Month{Year: 2024, Month: time.September})
	if spans[0] != (Span{1, 7}) {
		t.Errorf("September 2024 first span = %+v", spans[0])
	}
}

func TestWeeklyProgressAllComplete(t *testing.T) {
	month := schedule.Month{Year: 2024, Month: time.March}
	weeks := WeeklyProgress(month, []model.Routine{hydrate}, completeAll(month, hydrate))

	if len(weeks) != 6 {
		t.Fatalf("weeks = %d, want 6", len(weeks))
	}
	expected := 0
	for _, w := range weeks {
		if w.Expected > 0 && w.Completed != w.Expected {
			t.Errorf("week %d: completed %d of %d", w.Number, w.Completed, w.Expected)
		}
		expected += w.Expected
	}
	// March 2024 has 21 weekdays.
	if expected != 21 {
		t.Errorf("total expected = %d, want 21", expected)
	}
	// March 31 2024 is a Sunday, alone in the final bucket.
	if last := weeks[5]; last.Expected != 0 || last.Span != (Span{31, 31}) {
		t.Errorf("last week = %+v", last)
	}

	m := Evaluate(weeks)
	if !m.RewardEarned {
		t.Errorf("reward not earned: %+v", m)
	}
	if m.CompletedWeeks != 5 || m.WeeksWithWork != 5 {
		t.Errorf("milestone = %+v", m)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, m.CompletedWeekNumbers); diff != "" {
		t.Errorf("completed weeks (-want +got):\n%s", diff)
	}
}

func TestWeeklyProgressMissedTuesday(t *testing.T) {
	month := schedule.Month{Year: 2024, Month: time.March}
	completions := completeAll(month, hydrate)
	// Week 3 spans March 10-16; March 12 is its Tuesday.
	completions.Set("2024-03-12", hydrate.ID, false)

	weeks := WeeklyProgress(month, []model.Routine{hydrate}, completions)
	w3 := weeks[2]
	if w3.Span != (Span{10, 16}) {
		t.Fatalf("week 3 span = %+v", w3.Span)
	}
	if w3.Completed != w3.Expected-1 {
		t.Errorf("week 3 completed = %d, expected = %d", w3.Completed, w3.Expected)
	}

	m := Evaluate(weeks)
	if m.RewardEarned {
		t.Error("reward earned despite missed Tuesday")
	}
	if m.CompletedWeeks != 4 {
		t.Errorf("completed weeks = %d, want 4", m.CompletedWeeks)
	}
}

func TestWeeklyProgressCountsEverydayRoutines(t *testing.T) {
	month := schedule.Month{Year: 2024, Month: time.May}
	water := model.Routine{ID: "water", Days: model.EveryDay()}
	weeks := WeeklyProgress(month, []model.Routine{water}, nil)
	if weeks[0].Expected != 4 {
		t.Errorf("first week expected = %d, want 4", weeks[0].Expected)
	}
	if weeks[0].Completed != 0 {
		t.Errorf("first week completed = %d, want 0", weeks[0].Completed)
	}
}

func TestEvaluateVacuousMonthNeverRewards(t *testing.T) {
	month := schedule.Month{Year: 2024, Month: time.March}
	idle := model.Routine{ID: "idle", Days: model.Weekdays{}}

	for _, routines := range [][]model.Routine{nil, {idle}} {
		m := Evaluate(WeeklyProgress(month, routines, nil))
		if m.RewardEarned {
			t.Errorf("reward earned with no obligations: %+v", m)
		}
		if m.Ratio != 0 {
			t.Errorf("ratio = %v, want 0", m.Ratio)
		}
	}

	if m := Evaluate(nil); m.RewardEarned || m.Ratio != 0 || m.TotalWeeks != 0 {
		t.Errorf("Evaluate(nil) = %+v", m)
	}
}

func TestEvaluateRatio(t *testing.T) {
	weeks := []WeekBucket{
		{Number: 1, Expected: 2, Completed: 2},
		{Number: 2, Expected: 3, Completed: 1},
		{Number: 3, Expected: 0},
		{Number: 4, Expected: 1, Completed: 1},
	}
	m := Evaluate(weeks)
	if m.Ratio != 0.5 {
		t.Errorf("ratio = %v, want 0.5", m.Ratio)
	}
	if m.WeeksWithWork != 3 || m.CompletedWeeks != 2 || m.RewardEarned {
		t.Errorf("milestone = %+v", m)
	}
}

func TestLegend(t *testing.T) {
	entries := Legend([]model.Routine{
		{ID: "gym", Name: "Gym", Days: model.NewWeekdays(5, 1, 3)},
		{ID: "water", Name: "Water", Days: model.EveryDay()},
	})
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if got := entries[0].Summary(); got != "3x/wk: Mon, Wed, Fri" {
		t.Errorf("Summary() = %q", got)
	}
	if !entries[1].EveryDay || entries[1].TimesPerWeek != 7 {
		t.Errorf("water entry = %+v", entries[1])
	}
}

func TestRenderTodayTrack(t *testing.T) {
	month := schedule.Month{Year: 2024, Month: time.March}
	water := model.Routine{ID: "water", Days: model.EveryDay()}
	completions := model.CompletionMap{}
	completions.Set("2024-03-14", "water", true)

	s := Render(month, []model.Routine{hydrate, water}, completions, time.Date(2024, time.March, 14, 8, 0, 0, 0, time.Local))
	if s.Label != "March 2024" {
		t.Errorf("label = %q", s.Label)
	}
	if s.Today == nil {
		t.Fatal("today track missing for current month")
	}
	if s.Today.Date != "2024-03-14" || len(s.Today.Checks) != 1 || !s.Today.Checks[0].Done {
		t.Errorf("today track = %+v", s.Today)
	}

	s = Render(month.Prev(), []model.Routine{water}, completions, time.Date(2024, time.March, 14, 8, 0, 0, 0, time.Local))
	if s.Today != nil {
		t.Error("today track set for a past month")
	}
}
