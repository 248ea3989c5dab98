package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionRecord is one finished interval in the append-only session log.
// Records are never updated after they are written; ID is assigned by storage.
type SessionRecord struct {
	ID      int64
	GUID    string
	Mode    TimerMode
	Outcome Outcome

	// PlannedSeconds is the full planned length of the interval, even when
	// it was cut short. ActualSeconds is the time the timer actually ran.
	PlannedSeconds int
	ActualSeconds  int

	StartedAt     time.Time
	CompletedAt   time.Time
	Date          string
	BreakActivity BreakActivity
	Settings      SettingsSnapshot
}

// NewSessionRecord builds a record for a session that ended at completedAt.
// The GUID is freshly minted and the date key is taken from completedAt in the
// local calendar, so a focus session running past midnight counts for the day
// it ended on.
func NewSessionRecord(
	mode TimerMode,
	outcome Outcome,
	plannedSeconds, actualSeconds int,
	startedAt, completedAt time.Time,
	activity BreakActivity,
	settings SettingsSnapshot,
) SessionRecord {
	return SessionRecord{
		GUID:           uuid.NewString(),
		Mode:           mode,
		Outcome:        outcome,
		PlannedSeconds: plannedSeconds,
		ActualSeconds:  actualSeconds,
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		Date:           DateKeyOf(completedAt),
		BreakActivity:  activity,
		Settings:       settings,
	}
}

// Validate rejects records storage would refuse.
func (r SessionRecord) Validate() error {
	switch {
	case !r.Mode.IsValid():
		return &ValidationError{Field: "session_type", Value: r.Mode}
	case !r.Outcome.IsValid():
		return &ValidationError{Field: "status", Value: r.Outcome}
	case r.PlannedSeconds <= 0:
		return &ValidationError{Field: "planned_duration", Value: r.PlannedSeconds}
	case r.ActualSeconds < 0:
		return &ValidationError{Field: "actual_duration", Value: r.ActualSeconds}
	case r.Date == "":
		return &ValidationError{Field: "date", Value: r.Date}
	case !r.BreakActivity.IsValid():
		return &ValidationError{Field: "break_activity", Value: r.BreakActivity}
	}
	return nil
}

// IsCompletedFocus reports whether the record counts toward streaks and the
// settings session count.
func (r SessionRecord) IsCompletedFocus() bool {
	return r.Mode == ModeFocus && r.Outcome == OutcomeCompleted
}
