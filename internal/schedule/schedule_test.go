package schedule

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dukerupert/routiner/internal/model"
)

func ids(routines []model.Routine) []string {
	out := make([]string, 0, len(routines))
	for _, r := range routines {
		out = append(out, r.ID)
	}
	return out
}

func TestMonthDays(t *testing.T) {
	tests := []struct {
		month Month
		want  int
	}{
		{Month{2024, time.February}, 29},
		{Month{2023, time.February}, 28},
		{Month{1900, time.February}, 28},
		{Month{2000, time.February}, 29},
		{Month{2024, time.January}, 31},
		{Month{2024, time.April}, 30},
		{Month{2024, time.December}, 31},
	}
	for _, tt := range tests {
		if got := tt.month.Days(); got != tt.want {
			t.Errorf("%s Days() = %d, want %d", tt.month.Label(), got, tt.want)
		}
	}
}

func TestMonthFirstWeekdayMatchesCalendar(t *testing.T) {
	for year := 1999; year <= 2031; year++ {
		for m := time.January; m <= time.December; m++ {
			month := Month{year, m}
			want := time.Date(year, m, 1, 12, 0, 0, 0, time.Local).Weekday()
			if got := month.FirstWeekday(); got != want {
				t.Fatalf("%s FirstWeekday() = %s, want %s", month.Label(), got, want)
			}
		}
	}

	if got := (Month{2024, time.May}).FirstWeekday(); got != time.Wednesday {
		t.Errorf("May 2024 first weekday = %s, want Wednesday", got)
	}
}

func TestMonthNavigationWrapsYears(t *testing.T) {
	dec := Month{2023, time.December}
	if got := dec.Next(); got != (Month{2024, time.January}) {
		t.Errorf("Next() = %+v, want January 2024", got)
	}
	jan := Month{2024, time.January}
	if got := jan.Prev(); got != dec {
		t.Errorf("Prev() = %+v, want December 2023", got)
	}
}

func TestMonthDateFormatting(t *testing.T) {
	m := Month{2024, time.March}
	if got := m.Date(5); got != "2024-03-05" {
		t.Errorf("Date(5) = %q, want %q", got, "2024-03-05")
	}
	first, last := m.DateRange()
	if first != "2024-03-01" || last != "2024-03-31" {
		t.Errorf("DateRange() = %q, %q", first, last)
	}
	if got := m.Label(); got != "March 2024" {
		t.Errorf("Label() = %q, want %q", got, "March 2024")
	}
}

func TestMonthToday(t *testing.T) {
	m := Month{2024, time.March}
	if got := m.Today(time.Date(2024, time.March, 14, 9, 0, 0, 0, time.Local)); got != 14 {
		t.Errorf("Today() = %d, want 14", got)
	}
	if got := m.Today(time.Date(2024, time.April, 14, 9, 0, 0, 0, time.Local)); got != 0 {
		t.Errorf("Today() in other month = %d, want 0", got)
	}
}

func TestResolvePartitionsTracks(t *testing.T) {
	routines := []model.Routine{
		{ID: "water", Days: model.EveryDay()},
		{ID: "gym", Days: model.NewWeekdays(1, 3, 5)},
		{ID: "read", Days: model.NewWeekdays(0, 1, 2, 3, 4, 5)},
		{ID: "never", Days: model.Weekdays{}},
	}

	due := Resolve(routines, time.Monday)
	if diff := cmp.Diff([]string{"gym", "read"}, ids(due.Inline)); diff != "" {
		t.Errorf("inline mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"water"}, ids(due.EveryDay)); diff != "" {
		t.Errorf("everyday mismatch (-want +got):\n%s", diff)
	}

	due = Resolve(routines, time.Saturday)
	if len(due.Inline) != 0 {
		t.Errorf("saturday inline = %v, want none", ids(due.Inline))
	}
	if due.Len() != 1 {
		t.Errorf("saturday Len() = %d, want 1", due.Len())
	}
}

func TestResolveOrdersByTimeOfDay(t *testing.T) {
	days := model.NewWeekdays(2)
	routines := []model.Routine{
		{ID: "night", Days: days, TimeOfDay: model.TimeNight},
		{ID: "unknown", Days: days, TimeOfDay: "brunch"},
		{ID: "evening", Days: days, TimeOfDay: model.TimeEvening},
		{ID: "untagged", Days: days},
		{ID: "morning", Days: days, TimeOfDay: model.TimeMorning},
		{ID: "allday", Days: days, TimeOfDay: model.TimeAllDay},
	}

	want := []string{"morning", "unknown", "untagged", "allday", "evening", "night"}
	first := Resolve(routines, time.Tuesday)
	if diff := cmp.Diff(want, ids(first.Inline)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	second := Resolve(routines, time.Tuesday)
	if diff := cmp.Diff(ids(first.Inline), ids(second.Inline)); diff != "" {
		t.Errorf("repeat call not stable (-first +second):\n%s", diff)
	}
}

func TestResolveDoesNotReorderInput(t *testing.T) {
	days := model.NewWeekdays(4)
	routines := []model.Routine{
		{ID: "b", Days: days, TimeOfDay: model.TimeNight},
		{ID: "a", Days: days, TimeOfDay: model.TimeMorning},
	}
	Resolve(routines, time.Thursday)
	if routines[0].ID != "b" {
		t.Error("Resolve mutated the caller's slice")
	}
}

func TestResolveEmpty(t *testing.T) {
	week := Week(nil)
	for d, due := range week {
		if due.Len() != 0 {
			t.Errorf("weekday %d: Len() = %d, want 0", d, due.Len())
		}
	}
}

func TestIsDone(t *testing.T) {
	completions := model.CompletionMap{}
	completions.Set("2024-03-04", "gym", true)
	completions.Set("2024-03-05", "gym", false)

	tests := []struct {
		name      string
		m         model.CompletionMap
		date, rid string
		want      bool
	}{
		{"done", completions, "2024-03-04", "gym", true},
		{"explicit false", completions, "2024-03-05", "gym", false},
		{"missing routine", completions, "2024-03-04", "read", false},
		{"missing date", completions, "2024-03-06", "gym", false},
		{"nil map", nil, "2024-03-04", "gym", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDone(tt.m, tt.date, tt.rid); got != tt.want {
				t.Errorf("IsDone() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverlay(t *testing.T) {
	completions := model.CompletionMap{"2024-03-04": {"a": true}}
	routines := []model.Routine{{ID: "a"}, {ID: "b"}}

	checks := Overlay(routines, completions, "2024-03-04")
	if len(checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(checks))
	}
	if !checks[0].Done || checks[1].Done {
		t.Errorf("checks = %+v", checks)
	}
}

func TestAllDone(t *testing.T) {
	if AllDone(nil) {
		t.Error("AllDone(nil) = true")
	}
	if !AllDone([]Check{{Done: true}, {Done: true}}) {
		t.Error("all done checks reported pending")
	}
	if AllDone([]Check{{Done: true}, {Done: false}}) {
		t.Error("pending check reported done")
	}
}

func TestMonthValid(t *testing.T) {
	tests := []struct {
		m    Month
		want bool
	}{
		{Month{Year: 2024, Month: time.March}, true},
		{Month{Year: MinYear, Month: time.January}, true},
		{Month{Year: MaxYear, Month: time.December}, true},
		{Month{Year: 2024, Month: 0}, false},
		{Month{Year: 2024, Month: 13}, false},
		{Month{Year: 0, Month: time.March}, false},
		{Month{Year: 20000, Month: time.March}, false},
	}
	for _, tt := range tests {
		if got := tt.m.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.m, got, tt.want)
		}
	}
}
