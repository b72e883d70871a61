package calendar

// Milestone summarizes a month's weekly progress for the quest path.
type Milestone struct {
	TotalWeeks     int `json:"total_weeks"`
	CompletedWeeks int `json:"completed_weeks"`
	WeeksWithWork  int `json:"weeks_with_work"`
	// CompletedWeekNumbers lists the 1-based numbers of fully completed weeks.
	CompletedWeekNumbers []int `json:"completed_week_numbers"`
	// Ratio positions the progress marker along the path, 0..1.
	Ratio        float64 `json:"ratio"`
	RewardEarned bool    `json:"reward_earned"`
}

// Evaluate derives milestone flags from week buckets. A week either is
// complete or is not; there is no partial credit. The reward needs at least
// one week with obligations and every such week complete.
func Evaluate(weeks []WeekBucket) Milestone {
	m := Milestone{
		TotalWeeks:           len(weeks),
		CompletedWeekNumbers: []int{},
	}
	for _, w := range weeks {
		if w.Expected > 0 {
			m.WeeksWithWork++
		}
		if w.Complete() {
			m.CompletedWeeks++
			m.CompletedWeekNumbers = append(m.CompletedWeekNumbers, w.Number)
		}
	}
	if m.TotalWeeks > 0 {
		m.Ratio = float64(m.CompletedWeeks) / float64(m.TotalWeeks)
	}
	m.RewardEarned = m.WeeksWithWork > 0 && m.CompletedWeeks == m.WeeksWithWork
	return m
}
