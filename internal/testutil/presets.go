package testutil

import "github.com/zjrosen/standclock/internal/sessions/domain"

// WithTypicalDay adds a morning on date: four completed focus sessions with
// short breaks (standing, walking, stretching, unlabelled), one long break,
// one skipped focus session and one abandoned one.
func (b *Builder) WithTypicalDay(date string) *Builder {
	activities := []domain.BreakActivity{
		domain.ActivityStanding, domain.ActivityWalking, domain.ActivityStretching,
	}
	hour, minute := 8, 0
	next := func() RecordOption {
		opt := At(hour, minute)
		minute += 30
		if minute >= 60 {
			hour++
			minute -= 60
		}
		return opt
	}

	for i := 0; i < 4; i++ {
		b.WithRecord(date, next())
		if i < 3 {
			b.WithRecord(date, Mode(domain.ModeShortBreak), Activity(activities[i]), next())
		}
	}
	return b.
		WithRecord(date, Mode(domain.ModeLongBreak), next()).
		WithRecord(date, Outcome(domain.OutcomeSkipped), Actual(600), next()).
		WithRecord(date, Outcome(domain.OutcomeAbandoned), Actual(300), next())
}
