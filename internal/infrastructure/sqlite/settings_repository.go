package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

type settingsRepository struct {
	q querier
}

var _ domain.SettingsRepository = (*settingsRepository)(nil)

// Load returns the saved settings, or ok=false before the first Save.
func (r *settingsRepository) Load() (domain.Settings, bool, error) {
	var m SettingsModel
	err := r.q.QueryRow(
		`SELECT work_duration, short_break_duration, long_break_duration, sessions_before_long_break,
			default_break_activity, eye_care_enabled, eye_care_interval, eye_care_duration
		FROM timer_settings WHERE id = 1`,
	).Scan(
		&m.WorkDuration, &m.ShortBreakDuration, &m.LongBreakDuration, &m.SessionsBeforeLongBreak,
		&m.DefaultBreakActivity, &m.EyeCareEnabled, &m.EyeCareInterval, &m.EyeCareDuration,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, false, nil
	}
	if err != nil {
		return domain.Settings{}, false, fmt.Errorf("failed to load settings: %w", err)
	}
	return m.toDomain(), true, nil
}

// Save upserts the singleton row.
func (r *settingsRepository) Save(settings domain.Settings) error {
	m := toSettingsModel(settings)
	_, err := r.q.Exec(
		`INSERT INTO timer_settings (
			id, work_duration, short_break_duration, long_break_duration, sessions_before_long_break,
			default_break_activity, eye_care_enabled, eye_care_interval, eye_care_duration, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			work_duration = excluded.work_duration,
			short_break_duration = excluded.short_break_duration,
			long_break_duration = excluded.long_break_duration,
			sessions_before_long_break = excluded.sessions_before_long_break,
			default_break_activity = excluded.default_break_activity,
			eye_care_enabled = excluded.eye_care_enabled,
			eye_care_interval = excluded.eye_care_interval,
			eye_care_duration = excluded.eye_care_duration,
			updated_at = excluded.updated_at`,
		m.WorkDuration, m.ShortBreakDuration, m.LongBreakDuration, m.SessionsBeforeLongBreak,
		m.DefaultBreakActivity, m.EyeCareEnabled, m.EyeCareInterval, m.EyeCareDuration,
		formatTime(time.Now()),
	)
	if err != nil {
		return &domain.PersistenceError{Op: "save settings", Err: err}
	}
	return nil
}
