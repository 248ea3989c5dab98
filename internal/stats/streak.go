package stats

import (
	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// NextStreak applies one completed-focus day to info.
//
// Same day: unchanged (1 if the streak was never started). The next calendar
// day: +1. A later gap: back to 1. An earlier date than the last activity
// leaves the streak alone, so a late write never rewinds it. Applying the same
// date twice is a no-op.
func NextStreak(info domain.StreakInfo, date string) (domain.StreakInfo, error) {
	next := info
	if info.LastActivityDate == "" {
		next.CurrentStreak = 1
		next.LastActivityDate = date
		next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
		return next, nil
	}

	days, err := domain.DaysBetween(info.LastActivityDate, date)
	if err != nil {
		return info, err
	}

	switch {
	case days < 0:
		return info, nil
	case days == 0:
		if next.CurrentStreak == 0 {
			next.CurrentStreak = 1
		}
	case days == 1:
		next.CurrentStreak++
	default:
		next.CurrentStreak = 1
	}
	next.LastActivityDate = date
	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
	return next, nil
}
