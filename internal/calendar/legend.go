package calendar

import (
	"fmt"
	"strings"

	"github.com/dukerupert/routiner/internal/model"
)

// LegendEntry describes one routine beneath the calendar.
type LegendEntry struct {
	RoutineID    string   `json:"routine_id"`
	Name         string   `json:"name"`
	Icon         string   `json:"icon"`
	Color        string   `json:"color"`
	TimesPerWeek int      `json:"times_per_week"`
	Days         []string `json:"days"`
	EveryDay     bool     `json:"everyday"`
}

// Summary is the hover text, e.g. "3x/wk: Mon, Wed, Fri".
func (e LegendEntry) Summary() string {
	return fmt.Sprintf("%dx/wk: %s", e.TimesPerWeek, strings.Join(e.Days, ", "))
}

// Legend returns one entry per routine in collection order.
func Legend(routines []model.Routine) []LegendEntry {
	entries := make([]LegendEntry, 0, len(routines))
	for _, r := range routines {
		entries = append(entries, LegendEntry{
			RoutineID:    r.ID,
			Name:         r.Name,
			Icon:         r.Icon,
			Color:        r.Color,
			TimesPerWeek: r.TimesPerWeek(),
			Days:         r.Days.Labels(),
			EveryDay:     r.IsEveryDay(),
		})
	}
	return entries
}
