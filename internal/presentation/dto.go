package presentation

import (
	"time"

	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/stats"
)

// DailyStatsDTO represents one day's aggregate for presentation
type DailyStatsDTO struct {
	Date            string `json:"date"`
	FocusCompleted  int    `json:"focus_completed"`
	FocusSkipped    int    `json:"focus_skipped"`
	FocusAbandoned  int    `json:"focus_abandoned"`
	BreaksCompleted int    `json:"breaks_completed"`
	BreaksSkipped   int    `json:"breaks_skipped"`
	BreaksAbandoned int    `json:"breaks_abandoned"`
	SessionsStarted int    `json:"sessions_started"`

	WorkSeconds     int `json:"work_seconds"`
	BreakSeconds    int `json:"break_seconds"`
	StandingSeconds int `json:"standing_seconds"`
	ExerciseSeconds int `json:"exercise_seconds"`

	Activities ActivityCountsDTO `json:"activities"`

	CompletionRate int  `json:"completion_rate"`
	FocusScore     int  `json:"focus_score"`
	StreakDay      bool `json:"streak_day"`
}

// ActivityCountsDTO counts completed short breaks by activity.
type ActivityCountsDTO struct {
	Standing   int `json:"standing"`
	Walking    int `json:"walking"`
	Stretching int `json:"stretching"`
	Other      int `json:"other"`
}

// SummaryDTO condenses a range of days
type SummaryDTO struct {
	Days                int    `json:"days"`
	ActiveDays          int    `json:"active_days"`
	TotalSessions       int    `json:"total_sessions"`
	CompletedFocus      int    `json:"completed_focus"`
	WorkSeconds         int    `json:"work_seconds"`
	BreakSeconds        int    `json:"break_seconds"`
	AverageFocusSeconds int    `json:"average_focus_seconds"`
	AverageFocusScore   int    `json:"average_focus_score"`
	MostProductiveDate  string `json:"most_productive_date,omitempty"`
}

// RangeDTO is a list of days plus their summary.
type RangeDTO struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Days    []DailyStatsDTO `json:"days"`
	Summary SummaryDTO      `json:"summary"`
}

// SessionDTO represents one record of the session log
type SessionDTO struct {
	ID             int64     `json:"id"`
	GUID           string    `json:"guid"`
	Mode           string    `json:"mode"`
	Outcome        string    `json:"outcome"`
	PlannedSeconds int       `json:"planned_seconds"`
	ActualSeconds  int       `json:"actual_seconds"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	Date           string    `json:"date"`
	Activity       string    `json:"activity,omitempty"`
	Settings       string    `json:"settings"`
}

// SettingsDTO represents the persisted settings row
type SettingsDTO struct {
	WorkMinutes             int    `json:"work_minutes"`
	ShortBreakMinutes       int    `json:"short_break_minutes"`
	LongBreakMinutes        int    `json:"long_break_minutes"`
	SessionsBeforeLongBreak int    `json:"sessions_before_long_break"`
	DefaultBreakActivity    string `json:"default_break_activity,omitempty"`
	EyeCareEnabled          bool   `json:"eye_care_enabled"`
	EyeCareIntervalMinutes  int    `json:"eye_care_interval_minutes"`
	EyeCareBreakSeconds     int    `json:"eye_care_break_seconds"`

	// Sessions run with the current timer settings.
	Sessions          int `json:"sessions"`
	CompletedSessions int `json:"completed_sessions"`
}

// OverviewDTO is the all-time view: streak plus lifetime totals.
type OverviewDTO struct {
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	LastActivityDate string  `json:"last_activity_date,omitempty"`
	TotalSessions    int     `json:"total_sessions"`
	TotalFocusHours  float64 `json:"total_focus_hours"`
	BestFocusScore   int     `json:"best_focus_score"`
}

// FromDailyStats converts a domain aggregate to a DTO
func FromDailyStats(d domain.DailyStats) DailyStatsDTO {
	return DailyStatsDTO{
		Date:            d.Date,
		FocusCompleted:  d.WorkSessionsCompleted,
		FocusSkipped:    d.WorkSessionsSkipped,
		FocusAbandoned:  d.WorkSessionsAbandoned,
		BreaksCompleted: d.BreakSessionsCompleted,
		BreaksSkipped:   d.BreakSessionsSkipped,
		BreaksAbandoned: d.BreakSessionsAbandoned,
		SessionsStarted: d.TotalSessionsStarted,
		WorkSeconds:     d.TotalWorkTime,
		BreakSeconds:    d.TotalBreakTime,
		StandingSeconds: d.TotalStandingTime,
		ExerciseSeconds: d.TotalExerciseTime,
		Activities: ActivityCountsDTO{
			Standing:   d.StandingBreaks,
			Walking:    d.WalkingBreaks,
			Stretching: d.StretchingBreaks,
			Other:      d.OtherBreaks,
		},
		CompletionRate: d.CompletionRate,
		FocusScore:     d.FocusScore,
		StreakDay:      d.IsStreakDay,
	}
}

// FromRange converts rows and their summary.
func FromRange(from, to string, rows []domain.DailyStats, sum stats.RangeSummary) RangeDTO {
	days := make([]DailyStatsDTO, len(rows))
	for i, d := range rows {
		days[i] = FromDailyStats(d)
	}
	return RangeDTO{
		From: from,
		To:   to,
		Days: days,
		Summary: SummaryDTO{
			Days:                sum.Days,
			ActiveDays:          sum.ActiveDays,
			TotalSessions:       sum.TotalSessions,
			CompletedFocus:      sum.CompletedFocus,
			WorkSeconds:         sum.TotalWorkTime,
			BreakSeconds:        sum.TotalBreakTime,
			AverageFocusSeconds: sum.AverageFocusSeconds,
			AverageFocusScore:   sum.AverageFocusScore,
			MostProductiveDate:  sum.MostProductiveDate,
		},
	}
}

// FromSessions converts session records, keeping their order
func FromSessions(records []domain.SessionRecord) []SessionDTO {
	out := make([]SessionDTO, len(records))
	for i, r := range records {
		out[i] = SessionDTO{
			ID:             r.ID,
			GUID:           r.GUID,
			Mode:           string(r.Mode),
			Outcome:        string(r.Outcome),
			PlannedSeconds: r.PlannedSeconds,
			ActualSeconds:  r.ActualSeconds,
			StartedAt:      r.StartedAt,
			CompletedAt:    r.CompletedAt,
			Date:           r.Date,
			Activity:       string(r.BreakActivity),
			Settings:       r.Settings.String(),
		}
	}
	return out
}

// FromSettings converts settings and the stats recorded under them.
func FromSettings(s domain.Settings, st domain.SettingsStats) SettingsDTO {
	return SettingsDTO{
		WorkMinutes:             s.WorkMinutes,
		ShortBreakMinutes:       s.ShortBreakMinutes,
		LongBreakMinutes:        s.LongBreakMinutes,
		SessionsBeforeLongBreak: s.SessionsBeforeLongBreak,
		DefaultBreakActivity:    string(s.DefaultBreakActivity),
		EyeCareEnabled:          s.EyeCareEnabled,
		EyeCareIntervalMinutes:  s.EyeCareIntervalMinutes,
		EyeCareBreakSeconds:     s.EyeCareBreakSeconds,
		Sessions:                st.TotalSessions,
		CompletedSessions:       st.CompletedSessions,
	}
}

func FromOverview(streak domain.StreakInfo, all domain.AllTimeStats) OverviewDTO {
	return OverviewDTO{
		CurrentStreak:    streak.CurrentStreak,
		LongestStreak:    streak.LongestStreak,
		LastActivityDate: streak.LastActivityDate,
		TotalSessions:    all.TotalSessions,
		TotalFocusHours:  all.TotalFocusHours,
		BestFocusScore:   all.BestFocusScore,
	}
}
