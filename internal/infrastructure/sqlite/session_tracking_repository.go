package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

const sessionColumns = `id, guid, session_type, status, planned_duration, actual_duration,
	started_at, completed_at, date, break_activity,
	work_duration, short_break_duration, long_break_duration, sessions_before_long_break`

const dailyStatsColumns = `date,
	work_sessions_completed, work_sessions_skipped, work_sessions_abandoned,
	break_sessions_completed, break_sessions_skipped, break_sessions_abandoned,
	total_sessions_started, total_work_time, total_break_time, total_standing_time, total_exercise_time,
	standing_breaks, walking_breaks, stretching_breaks, other_breaks,
	completion_rate, focus_score, is_streak_day`

type sessionTrackingRepository struct {
	q querier
}

var _ domain.SessionTrackingRepository = (*sessionTrackingRepository)(nil)

func scanSession(scanner interface{ Scan(...any) error }) (SessionModel, error) {
	var m SessionModel
	err := scanner.Scan(
		&m.ID, &m.GUID, &m.SessionType, &m.Status, &m.PlannedDuration, &m.ActualDuration,
		&m.StartedAt, &m.CompletedAt, &m.Date, &m.BreakActivity,
		&m.WorkDuration, &m.ShortBreakDuration, &m.LongBreakDuration, &m.SessionsBeforeLongBreak,
	)
	return m, err
}

func scanDailyStats(scanner interface{ Scan(...any) error }) (domain.DailyStats, error) {
	var s domain.DailyStats
	err := scanner.Scan(
		&s.Date,
		&s.WorkSessionsCompleted, &s.WorkSessionsSkipped, &s.WorkSessionsAbandoned,
		&s.BreakSessionsCompleted, &s.BreakSessionsSkipped, &s.BreakSessionsAbandoned,
		&s.TotalSessionsStarted, &s.TotalWorkTime, &s.TotalBreakTime, &s.TotalStandingTime, &s.TotalExerciseTime,
		&s.StandingBreaks, &s.WalkingBreaks, &s.StretchingBreaks, &s.OtherBreaks,
		&s.CompletionRate, &s.FocusScore, &s.IsStreakDay,
	)
	return s, err
}

// InsertSession appends record. A GUID already present yields
// DuplicateSessionError and leaves the table unchanged.
func (r *sessionTrackingRepository) InsertSession(record domain.SessionRecord) (int64, error) {
	if err := record.Validate(); err != nil {
		return 0, err
	}
	m := toSessionModel(record)
	result, err := r.q.Exec(
		`INSERT INTO sessions (
			guid, session_type, status, planned_duration, actual_duration,
			started_at, completed_at, date, break_activity,
			work_duration, short_break_duration, long_break_duration, sessions_before_long_break
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO NOTHING`,
		m.GUID, m.SessionType, m.Status, m.PlannedDuration, m.ActualDuration,
		m.StartedAt, m.CompletedAt, m.Date, m.BreakActivity,
		m.WorkDuration, m.ShortBreakDuration, m.LongBreakDuration, m.SessionsBeforeLongBreak,
	)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "insert session", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, &domain.PersistenceError{Op: "insert session", Err: err}
	}
	if affected == 0 {
		return 0, &domain.DuplicateSessionError{GUID: record.GUID}
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// SessionsForDate returns the date's records oldest first.
func (r *sessionTrackingRepository) SessionsForDate(date string) ([]domain.SessionRecord, error) {
	rows, err := r.q.Query(
		`SELECT `+sessionColumns+` FROM sessions WHERE date = ? ORDER BY started_at, id`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.SessionRecord
	for rows.Next() {
		m, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		rec, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return records, nil
}

func (r *sessionTrackingRepository) UpsertDailyStats(s domain.DailyStats) error {
	_, err := r.q.Exec(
		`INSERT INTO daily_stats (`+dailyStatsColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			work_sessions_completed = excluded.work_sessions_completed,
			work_sessions_skipped = excluded.work_sessions_skipped,
			work_sessions_abandoned = excluded.work_sessions_abandoned,
			break_sessions_completed = excluded.break_sessions_completed,
			break_sessions_skipped = excluded.break_sessions_skipped,
			break_sessions_abandoned = excluded.break_sessions_abandoned,
			total_sessions_started = excluded.total_sessions_started,
			total_work_time = excluded.total_work_time,
			total_break_time = excluded.total_break_time,
			total_standing_time = excluded.total_standing_time,
			total_exercise_time = excluded.total_exercise_time,
			standing_breaks = excluded.standing_breaks,
			walking_breaks = excluded.walking_breaks,
			stretching_breaks = excluded.stretching_breaks,
			other_breaks = excluded.other_breaks,
			completion_rate = excluded.completion_rate,
			focus_score = excluded.focus_score,
			is_streak_day = excluded.is_streak_day,
			updated_at = excluded.updated_at`,
		s.Date,
		s.WorkSessionsCompleted, s.WorkSessionsSkipped, s.WorkSessionsAbandoned,
		s.BreakSessionsCompleted, s.BreakSessionsSkipped, s.BreakSessionsAbandoned,
		s.TotalSessionsStarted, s.TotalWorkTime, s.TotalBreakTime, s.TotalStandingTime, s.TotalExerciseTime,
		s.StandingBreaks, s.WalkingBreaks, s.StretchingBreaks, s.OtherBreaks,
		s.CompletionRate, s.FocusScore, s.IsStreakDay,
		formatTime(time.Now()),
	)
	if err != nil {
		return &domain.PersistenceError{Op: "upsert daily stats", Err: err}
	}
	return nil
}

func (r *sessionTrackingRepository) DailyStats(date string) (domain.DailyStats, bool, error) {
	row := r.q.QueryRow(`SELECT `+dailyStatsColumns+` FROM daily_stats WHERE date = ?`, date)
	s, err := scanDailyStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EmptyDailyStats(date), false, nil
	}
	if err != nil {
		return domain.EmptyDailyStats(date), false, fmt.Errorf("failed to load daily stats: %w", err)
	}
	return s, true, nil
}

func (r *sessionTrackingRepository) DailyStatsRange(from, to string) ([]domain.DailyStats, error) {
	rows, err := r.q.Query(
		`SELECT `+dailyStatsColumns+` FROM daily_stats WHERE date >= ? AND date <= ? ORDER BY date`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.DailyStats
	for rows.Next() {
		s, err := scanDailyStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}
	return out, nil
}

// AllTimeStats counts every completed record, sums focus time over the daily
// rows and takes the best daily focus score.
func (r *sessionTrackingRepository) AllTimeStats() (domain.AllTimeStats, error) {
	var total int
	if err := r.q.QueryRow(`SELECT COUNT(*) FROM sessions WHERE status = 'completed'`).Scan(&total); err != nil {
		return domain.AllTimeStats{}, fmt.Errorf("failed to count sessions: %w", err)
	}

	var workSeconds, bestScore int
	if err := r.q.QueryRow(
		`SELECT COALESCE(SUM(total_work_time), 0), COALESCE(MAX(focus_score), 0) FROM daily_stats`,
	).Scan(&workSeconds, &bestScore); err != nil {
		return domain.AllTimeStats{}, fmt.Errorf("failed to aggregate daily stats: %w", err)
	}

	return domain.AllTimeStats{
		TotalSessions:   total,
		TotalFocusHours: math.Round(float64(workSeconds)/3600*10) / 10,
		BestFocusScore:  bestScore,
	}, nil
}

func (r *sessionTrackingRepository) Streak() (domain.StreakInfo, error) {
	var info domain.StreakInfo
	var last sql.NullString
	err := r.q.QueryRow(
		`SELECT current_streak, longest_streak, last_activity_date FROM streak_info WHERE id = 1`,
	).Scan(&info.CurrentStreak, &info.LongestStreak, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StreakInfo{}, nil
	}
	if err != nil {
		return domain.StreakInfo{}, fmt.Errorf("failed to load streak: %w", err)
	}
	info.LastActivityDate = last.String
	return info, nil
}

func (r *sessionTrackingRepository) SaveStreak(info domain.StreakInfo) error {
	var last *string
	if info.LastActivityDate != "" {
		last = &info.LastActivityDate
	}
	_, err := r.q.Exec(
		`INSERT INTO streak_info (id, current_streak, longest_streak, last_activity_date, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_activity_date = excluded.last_activity_date,
			updated_at = excluded.updated_at`,
		info.CurrentStreak, info.LongestStreak, last, formatTime(time.Now()),
	)
	if err != nil {
		return &domain.PersistenceError{Op: "save streak", Err: err}
	}
	return nil
}

const settingsMatch = `work_duration = ? AND short_break_duration = ?
	AND long_break_duration = ? AND sessions_before_long_break = ?`

func settingsArgs(s domain.SettingsSnapshot) []any {
	return []any{s.WorkMinutes, s.ShortBreakMinutes, s.LongBreakMinutes, s.SessionsBeforeLongBreak}
}

func (r *sessionTrackingRepository) CountCompletedFocusForSettings(snapshot domain.SettingsSnapshot) (int, error) {
	var count int
	err := r.q.QueryRow(
		`SELECT COUNT(*) FROM sessions
		WHERE session_type = 'pomodoro' AND status = 'completed' AND `+settingsMatch,
		settingsArgs(snapshot)...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions for settings: %w", err)
	}
	return count, nil
}

func (r *sessionTrackingRepository) StatsForSettings(snapshot domain.SettingsSnapshot) (domain.SettingsStats, error) {
	var s domain.SettingsStats
	err := r.q.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' AND session_type = 'pomodoro'
				THEN actual_duration ELSE 0 END), 0)
		FROM sessions WHERE `+settingsMatch,
		settingsArgs(snapshot)...,
	).Scan(&s.TotalSessions, &s.CompletedSessions, &s.TotalWorkTime)
	if err != nil {
		return domain.SettingsStats{}, fmt.Errorf("failed to aggregate sessions for settings: %w", err)
	}
	if s.TotalSessions > 0 {
		s.AverageCompletionRate = int(math.Round(float64(s.CompletedSessions) / float64(s.TotalSessions) * 100))
	}
	return s, nil
}
