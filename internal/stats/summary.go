package stats

import (
	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// RangeSummary condenses a run of daily rows.
type RangeSummary struct {
	Days                   int
	ActiveDays             int
	TotalSessions          int
	CompletedFocus         int
	TotalWorkTime          int
	TotalBreakTime         int
	AverageFocusSeconds    int
	AverageFocusScore      int
	MostProductiveDate     string
	MostProductiveWorkTime int
}

// Summarize folds rows into a RangeSummary. Days counts rows; a day is active
// when anything was started. The most productive day is the one with the most
// focus time, earliest wins ties.
func Summarize(rows []domain.DailyStats) RangeSummary {
	var sum RangeSummary
	var scoreTotal int
	for _, d := range rows {
		sum.Days++
		if d.TotalSessionsStarted > 0 {
			sum.ActiveDays++
			scoreTotal += d.FocusScore
		}
		sum.TotalSessions += d.TotalSessionsStarted
		sum.CompletedFocus += d.WorkSessionsCompleted
		sum.TotalWorkTime += d.TotalWorkTime
		sum.TotalBreakTime += d.TotalBreakTime
		if d.TotalWorkTime > sum.MostProductiveWorkTime {
			sum.MostProductiveWorkTime = d.TotalWorkTime
			sum.MostProductiveDate = d.Date
		}
	}
	if sum.CompletedFocus > 0 {
		sum.AverageFocusSeconds = sum.TotalWorkTime / sum.CompletedFocus
	}
	if sum.ActiveDays > 0 {
		sum.AverageFocusScore = roundedMean(scoreTotal, sum.ActiveDays)
	}
	return sum
}

func roundedMean(total, n int) int {
	return int(float64(total)/float64(n) + 0.5)
}
