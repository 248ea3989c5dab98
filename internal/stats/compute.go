// Package stats derives daily aggregates, streaks and summaries from the
// session log, and owns the transactional write path for new records.
package stats

import (
	"math"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// Compute replays every record of one date into its aggregate. It is pure:
// the same records always produce the same DailyStats, whatever their order.
func Compute(date string, records []domain.SessionRecord) domain.DailyStats {
	s := domain.EmptyDailyStats(date)

	var focusActual, focusPlanned, focusCompleted, abandoned int
	for _, r := range records {
		if r.Date != date {
			continue
		}
		s.TotalSessionsStarted++

		if r.Mode == domain.ModeFocus {
			switch r.Outcome {
			case domain.OutcomeCompleted:
				s.WorkSessionsCompleted++
				s.TotalWorkTime += r.ActualSeconds
				focusActual += r.ActualSeconds
				focusPlanned += r.PlannedSeconds
				focusCompleted++
			case domain.OutcomeSkipped:
				s.WorkSessionsSkipped++
			case domain.OutcomeAbandoned:
				s.WorkSessionsAbandoned++
				abandoned++
			}
			continue
		}

		switch r.Outcome {
		case domain.OutcomeCompleted:
			s.BreakSessionsCompleted++
			s.TotalBreakTime += r.ActualSeconds
			countActivity(&s, r)
		case domain.OutcomeSkipped:
			s.BreakSessionsSkipped++
		case domain.OutcomeAbandoned:
			s.BreakSessionsAbandoned++
			abandoned++
		}
	}

	completed := s.WorkSessionsCompleted + s.BreakSessionsCompleted
	s.CompletionRate = percent(completed, s.TotalSessionsStarted)

	var ratio float64
	if focusCompleted > 0 && focusPlanned > 0 {
		ratio = float64(focusActual) / float64(focusPlanned)
	}
	s.FocusScore = FocusScore(s.CompletionRate, ratio, abandoned, s.TotalSessionsStarted)
	s.IsStreakDay = s.WorkSessionsCompleted > 0
	return s
}

// countActivity files a completed break under its activity. Standing and
// walking add to standing time, stretching to exercise time. Breaks without an
// activity stay out of the histogram.
func countActivity(s *domain.DailyStats, r domain.SessionRecord) {
	switch r.BreakActivity {
	case domain.ActivityNone:
		return
	case domain.ActivityStanding:
		s.StandingBreaks++
		s.TotalStandingTime += r.ActualSeconds
	case domain.ActivityWalking:
		s.WalkingBreaks++
		s.TotalStandingTime += r.ActualSeconds
	case domain.ActivityStretching:
		s.StretchingBreaks++
		s.TotalExerciseTime += r.ActualSeconds
	default:
		s.OtherBreaks++
	}
}

// FocusScore is the 0-100 daily heuristic
//
//	completionRate*0.4 + min(durationRatio, 1)*40 + (1 - abandoned/started)*20
//
// where durationRatio is average actual over average planned length of the
// day's completed focus sessions. A day with nothing started scores 0.
func FocusScore(completionRate int, durationRatio float64, abandoned, started int) int {
	if started == 0 {
		return 0
	}
	ratio := math.Min(math.Max(durationRatio, 0), 1)
	score := float64(completionRate)*0.4 +
		ratio*40 +
		(1-float64(abandoned)/float64(started))*20
	return int(math.Round(score))
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
