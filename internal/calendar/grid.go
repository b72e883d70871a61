package calendar

import (
	"time"

	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/schedule"
)

// Cell is one day of the month grid.
type Cell struct {
	Day     int              `json:"day"`
	Date    string           `json:"date"`
	Weekday time.Weekday     `json:"weekday"`
	Today   bool             `json:"today"`
	Checks  []schedule.Check `json:"checks"`
	// EveryDay holds the roll-up track state for this day.
	EveryDay []schedule.Check `json:"everyday"`
}

// Grid lays a month out over fixed seven-column weeks. Leading and Trailing
// count the blank cells before day 1 and after the last day.
type Grid struct {
	Month    schedule.Month `json:"month"`
	Leading  int            `json:"leading"`
	Trailing int            `json:"trailing"`
	Cells    []Cell         `json:"cells"`
}

// TotalCells is the number of grid slots including blanks; always a multiple of 7.
func (g Grid) TotalCells() int {
	return g.Leading + len(g.Cells) + g.Trailing
}

// Weeks splits the grid into rows of seven. Blank slots are nil.
func (g Grid) Weeks() [][]*Cell {
	slots := make([]*Cell, g.TotalCells())
	for i := range g.Cells {
		slots[g.Leading+i] = &g.Cells[i]
	}
	var rows [][]*Cell
	for i := 0; i < len(slots); i += 7 {
		rows = append(rows, slots[i:i+7])
	}
	return rows
}

// BuildGrid resolves and overlays every day of month. now decides which cell
// is flagged as today; everything else depends only on the inputs.
func BuildGrid(month schedule.Month, routines []model.Routine, completions model.CompletionMap, now time.Time) Grid {
	week := schedule.Week(routines)
	days := month.Days()
	today := month.Today(now)

	g := Grid{
		Month:   month,
		Leading: int(month.FirstWeekday()),
		Cells:   make([]Cell, 0, days),
	}

	for day := 1; day <= days; day++ {
		date := month.Date(day)
		wd := month.Weekday(day)
		due := week[wd]
		g.Cells = append(g.Cells, Cell{
			Day:      day,
			Date:     date,
			Weekday:  wd,
			Today:    day == today,
			Checks:   schedule.Overlay(due.Inline, completions, date),
			EveryDay: schedule.Overlay(due.EveryDay, completions, date),
		})
	}

	g.Trailing = (7 - (g.Leading+days)%7) % 7
	return g
}
