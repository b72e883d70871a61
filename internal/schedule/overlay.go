package schedule

import "github.com/dukerupert/routiner/internal/model"

// IsDone reports whether routineID is marked done on date. A missing date or
// routine entry means not done.
func IsDone(completions model.CompletionMap, date, routineID string) bool {
	return completions[date][routineID]
}

// Check pairs a due routine with its completion state.
type Check struct {
	Routine model.Routine `json:"routine"`
	Done    bool          `json:"done"`
}

// Overlay marks each routine with its completion state on date.
func Overlay(routines []model.Routine, completions model.CompletionMap, date string) []Check {
	checks := make([]Check, 0, len(routines))
	for _, r := range routines {
		checks = append(checks, Check{Routine: r, Done: IsDone(completions, date, r.ID)})
	}
	return checks
}

// AllDone reports whether checks is non-empty and every check is done.
func AllDone(checks []Check) bool {
	for _, c := range checks {
		if !c.Done {
			return false
		}
	}
	return len(checks) > 0
}
