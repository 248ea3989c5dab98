package domain

// DailyStats is the per-date aggregate of the session log. It is always
// reproducible by replaying the date's records; durations are seconds.
type DailyStats struct {
	Date string

	WorkSessionsCompleted  int
	WorkSessionsSkipped    int
	WorkSessionsAbandoned  int
	BreakSessionsCompleted int
	BreakSessionsSkipped   int
	BreakSessionsAbandoned int
	TotalSessionsStarted   int

	TotalWorkTime     int
	TotalBreakTime    int
	TotalStandingTime int
	TotalExerciseTime int

	StandingBreaks   int
	WalkingBreaks    int
	StretchingBreaks int
	OtherBreaks      int

	// CompletionRate is a 0-100 percentage.
	CompletionRate int
	// FocusScore is a 0-100 heuristic.
	FocusScore int

	IsStreakDay bool
}

// EmptyDailyStats is the zero aggregate for a date with no activity.
func EmptyDailyStats(date string) DailyStats {
	return DailyStats{Date: date}
}

// StreakInfo is the singleton streak state. LastActivityDate is empty until
// the first completed focus session.
type StreakInfo struct {
	CurrentStreak    int
	LongestStreak    int
	LastActivityDate string
}

// AllTimeStats summarises the whole log.
type AllTimeStats struct {
	TotalSessions   int
	TotalFocusHours float64
	BestFocusScore  int
}

// SettingsStats summarises the sessions run under one settings snapshot.
// TotalWorkTime counts completed focus time only.
type SettingsStats struct {
	TotalSessions         int
	CompletedSessions     int
	AverageCompletionRate int
	TotalWorkTime         int
}

// EyeCareSnapshot is the persisted eye-care countdown, written periodically so
// a restart can resume roughly where it left off.
type EyeCareSnapshot struct {
	SecondsUntilBreak int
	SavedAt           int64 // unix millis
	Active            bool
}
