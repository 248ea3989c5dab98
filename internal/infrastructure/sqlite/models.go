package sqlite

import (
	"fmt"
	"time"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// SessionModel is a row of the sessions table.
type SessionModel struct {
	ID                      int64
	GUID                    string
	SessionType             string
	Status                  string
	PlannedDuration         int
	ActualDuration          int
	StartedAt               string
	CompletedAt             string
	Date                    string
	BreakActivity           *string // nullable
	WorkDuration            int
	ShortBreakDuration      int
	LongBreakDuration       int
	SessionsBeforeLongBreak int
}

func toSessionModel(r domain.SessionRecord) SessionModel {
	m := SessionModel{
		ID:                      r.ID,
		GUID:                    r.GUID,
		SessionType:             string(r.Mode),
		Status:                  string(r.Outcome),
		PlannedDuration:         r.PlannedSeconds,
		ActualDuration:          r.ActualSeconds,
		StartedAt:               formatTime(r.StartedAt),
		CompletedAt:             formatTime(r.CompletedAt),
		Date:                    r.Date,
		WorkDuration:            r.Settings.WorkMinutes,
		ShortBreakDuration:      r.Settings.ShortBreakMinutes,
		LongBreakDuration:       r.Settings.LongBreakMinutes,
		SessionsBeforeLongBreak: r.Settings.SessionsBeforeLongBreak,
	}
	if r.BreakActivity != domain.ActivityNone {
		activity := string(r.BreakActivity)
		m.BreakActivity = &activity
	}
	return m
}

func (m SessionModel) toDomain() (domain.SessionRecord, error) {
	startedAt, err := parseTime(m.StartedAt)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	completedAt, err := parseTime(m.CompletedAt)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	r := domain.SessionRecord{
		ID:             m.ID,
		GUID:           m.GUID,
		Mode:           domain.TimerMode(m.SessionType),
		Outcome:        domain.Outcome(m.Status),
		PlannedSeconds: m.PlannedDuration,
		ActualSeconds:  m.ActualDuration,
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		Date:           m.Date,
		Settings: domain.SettingsSnapshot{
			WorkMinutes:             m.WorkDuration,
			ShortBreakMinutes:       m.ShortBreakDuration,
			LongBreakMinutes:        m.LongBreakDuration,
			SessionsBeforeLongBreak: m.SessionsBeforeLongBreak,
		},
	}
	if m.BreakActivity != nil {
		r.BreakActivity = domain.BreakActivity(*m.BreakActivity)
	}
	return r, nil
}

// SettingsModel is the singleton timer_settings row.
type SettingsModel struct {
	WorkDuration            int
	ShortBreakDuration      int
	LongBreakDuration       int
	SessionsBeforeLongBreak int
	DefaultBreakActivity    *string // nullable
	EyeCareEnabled          bool
	EyeCareInterval         int // minutes
	EyeCareDuration         int // seconds
}

func toSettingsModel(s domain.Settings) SettingsModel {
	m := SettingsModel{
		WorkDuration:            s.WorkMinutes,
		ShortBreakDuration:      s.ShortBreakMinutes,
		LongBreakDuration:       s.LongBreakMinutes,
		SessionsBeforeLongBreak: s.SessionsBeforeLongBreak,
		EyeCareEnabled:          s.EyeCareEnabled,
		EyeCareInterval:         s.EyeCareIntervalMinutes,
		EyeCareDuration:         s.EyeCareBreakSeconds,
	}
	if s.DefaultBreakActivity != domain.ActivityNone {
		activity := string(s.DefaultBreakActivity)
		m.DefaultBreakActivity = &activity
	}
	return m
}

func (m SettingsModel) toDomain() domain.Settings {
	s := domain.Settings{
		WorkMinutes:             m.WorkDuration,
		ShortBreakMinutes:       m.ShortBreakDuration,
		LongBreakMinutes:        m.LongBreakDuration,
		SessionsBeforeLongBreak: m.SessionsBeforeLongBreak,
		EyeCareEnabled:          m.EyeCareEnabled,
		EyeCareIntervalMinutes:  m.EyeCareInterval,
		EyeCareBreakSeconds:     m.EyeCareDuration,
	}
	if m.DefaultBreakActivity != nil {
		s.DefaultBreakActivity = domain.BreakActivity(*m.DefaultBreakActivity)
	}
	return s
}
