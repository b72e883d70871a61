package calendar

import (
	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/schedule"
)

// Span is an inclusive run of day numbers within one month.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len is the number of days in the span.
func (s Span) Len() int {
	return s.End - s.Start + 1
}

// WeekBucket is the progress of one week of a month.
type WeekBucket struct {
	Number    int  `json:"number"`
	Span      Span `json:"span"`
	Expected  int  `json:"expected"`
	Completed int  `json:"completed"`
}

// Complete reports whether the week had obligations and all were met.
func (w WeekBucket) Complete() bool {
	return w.Expected > 0 && w.Completed >= w.Expected
}

// WeekSpans partitions month into Sunday-started weeks. When day 1 is not a
// Sunday the first span ends on the first Saturday; the last span ends on the
// last day of the month.
func WeekSpans(month schedule.Month) []Span {
	total := month.Days()
	first := int(month.FirstWeekday())

	var spans []Span
	start := 1
	if first > 0 {
		end := min(7-first, total)
		spans = append(spans, Span{Start: start, End: end})
		start = end + 1
	}
	for start <= total {
		end := min(start+6, total)
		spans = append(spans, Span{Start: start, End: end})
		start = end + 1
	}
	return spans
}

// WeeklyProgress counts expected and completed (day, routine) obligations for
// each week of month. Everyday routines count like any other.
func WeeklyProgress(month schedule.Month, routines []model.Routine, completions model.CompletionMap) []WeekBucket {
	week := schedule.Week(routines)
	spans := WeekSpans(month)
	buckets := make([]WeekBucket, 0, len(spans))

	for i, span := range spans {
		b := WeekBucket{Number: i + 1, Span: span}
		for day := span.Start; day <= span.End; day++ {
			date := month.Date(day)
			for _, r := range week[month.Weekday(day)].All() {
				b.Expected++
				if schedule.IsDone(completions, date, r.ID) {
					b.Completed++
				}
			}
		}
		buckets = append(buckets, b)
	}
	return buckets
}
