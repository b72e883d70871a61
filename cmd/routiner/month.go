package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/routiner/internal/calendar"
	"github.com/dukerupert/routiner/internal/database"
	"github.com/dukerupert/routiner/internal/report"
	"github.com/dukerupert/routiner/internal/schedule"
	"github.com/dukerupert/routiner/internal/store"
)

var monthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Print a month's calendar and weekly progress",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMonth,
}

func parseMonthArg(args []string, now time.Time) (schedule.Month, error) {
	if len(args) == 0 {
		return schedule.MonthOf(now), nil
	}
	t, err := time.Parse("2006-01", args[0])
	if err != nil {
		return schedule.Month{}, fmt.Errorf("month must be YYYY-MM: %w", err)
	}
	return schedule.MonthOf(t), nil
}

func runMonth(cmd *cobra.Command, args []string) error {
	now := time.Now()
	month, err := parseMonthArg(args, now)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	routines, err := store.NewRoutineStore(db).List()
	if err != nil {
		return err
	}
	start, end := month.DateRange()
	completions, err := store.NewCompletionStore(db).Snapshot(start, end)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Render(calendar.Render(month, routines, completions, now)))
	return nil
}
