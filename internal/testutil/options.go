package testutil

import (
	"time"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// RecordOption customises a record built by NewRecord or Builder.WithRecord.
type RecordOption func(*domain.SessionRecord)

// NewRecord builds a completed 25 minute focus record starting 09:00 local
// on date, then applies opts. Records get a fresh GUID.
func NewRecord(date string, opts ...RecordOption) domain.SessionRecord {
	day, err := domain.ParseDateKey(date)
	if err != nil {
		panic(err)
	}
	start := day.Add(9 * time.Hour)
	snap := domain.DefaultSnapshot()
	rec := domain.NewSessionRecord(domain.ModeFocus, domain.OutcomeCompleted,
		snap.DurationSeconds(domain.ModeFocus), snap.DurationSeconds(domain.ModeFocus),
		start, start.Add(25*time.Minute), domain.ActivityNone, snap)
	for _, opt := range opts {
		opt(&rec)
	}
	return rec
}

// Mode sets the mode and resets planned and actual to the full duration.
func Mode(m domain.TimerMode) RecordOption {
	return func(r *domain.SessionRecord) {
		r.Mode = m
		r.PlannedSeconds = r.Settings.DurationSeconds(m)
		r.ActualSeconds = r.PlannedSeconds
		r.CompletedAt = r.StartedAt.Add(time.Duration(r.ActualSeconds) * time.Second)
	}
}

func Outcome(o domain.Outcome) RecordOption {
	return func(r *domain.SessionRecord) { r.Outcome = o }
}

func Planned(seconds int) RecordOption {
	return func(r *domain.SessionRecord) { r.PlannedSeconds = seconds }
}

// Actual sets the actual duration and moves CompletedAt to match.
func Actual(seconds int) RecordOption {
	return func(r *domain.SessionRecord) {
		r.ActualSeconds = seconds
		r.CompletedAt = r.StartedAt.Add(time.Duration(seconds) * time.Second)
	}
}

// At moves the start to the given local time of the record's date.
func At(hour, minute int) RecordOption {
	return func(r *domain.SessionRecord) {
		day, _ := domain.ParseDateKey(r.Date)
		r.StartedAt = day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
		r.CompletedAt = r.StartedAt.Add(time.Duration(r.ActualSeconds) * time.Second)
	}
}

func Activity(a domain.BreakActivity) RecordOption {
	return func(r *domain.SessionRecord) { r.BreakActivity = a }
}

func Settings(s domain.SettingsSnapshot) RecordOption {
	return func(r *domain.SessionRecord) { r.Settings = s }
}
