// Package report renders a month snapshot for the terminal.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dukerupert/routiner/internal/calendar"
	"github.com/dukerupert/routiner/internal/schedule"
)

const (
	markDone    = "✓"
	markPending = "·"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Width(9)
	todayStyle  = cellStyle.Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	rewardStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fbbf24"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

var weekdayHeaders = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Render lays out the grid, the weekly progress and the milestone.
func Render(snap calendar.Snapshot) string {
	sections := []string{
		titleStyle.Render(snap.Label),
		grid(snap),
		legend(snap.Legend),
		weeks(snap.Weeks),
		milestone(snap.Milestone),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func grid(snap calendar.Snapshot) string {
	rows := snap.Grid.Weeks()
	today := map[int]bool{}
	for _, c := range snap.Grid.Cells {
		if c.Today {
			today[c.Day] = true
		}
	}

	data := make([][]string, 0, len(rows))
	todayPos := map[[2]int]bool{}
	for ri, row := range rows {
		cols := make([]string, 7)
		for ci, c := range row {
			if c == nil {
				continue
			}
			cols[ci] = cell(c)
			if today[c.Day] {
				todayPos[[2]int{ri, ci}] = true
			}
		}
		data = append(data, cols)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		BorderRow(true).
		Headers(weekdayHeaders...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case todayPos[[2]int{row, col}]:
				return todayStyle
			default:
				return cellStyle
			}
		})
	return t.Render()
}

// cell is the day number followed by one mark per routine due that day.
// Everyday routines collapse into a single star when all are done.
func cell(c *calendar.Cell) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(c.Day))
	if len(c.Checks) > 0 {
		b.WriteString("\n")
		b.WriteString(marks(c.Checks))
	}
	if len(c.EveryDay) > 0 {
		b.WriteString("\n")
		if schedule.AllDone(c.EveryDay) {
			b.WriteString("★")
		} else {
			b.WriteString(dimStyle.Render("☆"))
		}
	}
	return b.String()
}

func marks(checks []schedule.Check) string {
	parts := make([]string, 0, len(checks))
	for _, ch := range checks {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(ch.Routine.Color))
		if ch.Done {
			parts = append(parts, style.Render(markDone))
		} else {
			parts = append(parts, dimStyle.Render(markPending))
		}
	}
	return strings.Join(parts, "")
}

func legend(entries []calendar.LegendEntry) string {
	if len(entries) == 0 {
		return dimStyle.Render("No routines yet.")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render("■")
		summary := e.Summary()
		if e.EveryDay {
			summary = "every day"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s  %s", swatch, e.Icon, e.Name, dimStyle.Render(summary)))
	}
	return lipgloss.NewStyle().MarginTop(1).Render(strings.Join(lines, "\n"))
}

func weeks(buckets []calendar.WeekBucket) string {
	lines := make([]string, 0, len(buckets))
	for _, w := range buckets {
		status := dimStyle.Render("rest")
		switch {
		case w.Complete():
			status = markDone
		case w.Expected > 0:
			status = fmt.Sprintf("%d%%", w.Completed*100/w.Expected)
		}
		lines = append(lines, fmt.Sprintf("Week %d (%d-%d): %d/%d %s",
			w.Number, w.Span.Start, w.Span.End, w.Completed, w.Expected, status))
	}
	return lipgloss.NewStyle().MarginTop(1).Render(strings.Join(lines, "\n"))
}

func milestone(m calendar.Milestone) string {
	const width = 20
	filled := int(m.Ratio*width + 0.5)
	bar := strings.Repeat("━", filled) + dimStyle.Render(strings.Repeat("─", width-filled))
	line := fmt.Sprintf("%s %d/%d weeks", bar, m.CompletedWeeks, m.TotalWeeks)
	if m.RewardEarned {
		line += " " + rewardStyle.Render("🏆 reward earned")
	}
	return lipgloss.NewStyle().MarginTop(1).Render(line)
}
