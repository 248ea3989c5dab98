package domain

import "context"

// SettingsRepository persists the singleton settings row.
type SettingsRepository interface {
	// Load returns the saved settings. ok is false when nothing was saved yet.
	Load() (settings Settings, ok bool, err error)

	// Save replaces the stored settings.
	Save(settings Settings) error
}

// SessionTrackingRepository persists the session log and everything derived
// from it.
type SessionTrackingRepository interface {
	// InsertSession appends a record and returns its storage ID.
	// Returns DuplicateSessionError if the GUID was already written.
	InsertSession(record SessionRecord) (int64, error)

	// SessionsForDate returns the records of one date ordered by start time.
	SessionsForDate(date string) ([]SessionRecord, error)

	// UpsertDailyStats replaces the aggregate row of stats.Date.
	UpsertDailyStats(stats DailyStats) error

	// DailyStats returns the aggregate row of date. ok is false if absent.
	DailyStats(date string) (stats DailyStats, ok bool, err error)

	// DailyStatsRange returns the rows between from and to inclusive,
	// ordered by date. Dates without a row are omitted.
	DailyStatsRange(from, to string) ([]DailyStats, error)

	// AllTimeStats aggregates over every record and every daily row.
	AllTimeStats() (AllTimeStats, error)

	// Streak returns the streak singleton, zero valued if never written.
	Streak() (StreakInfo, error)

	// SaveStreak replaces the streak singleton.
	SaveStreak(info StreakInfo) error

	// CountCompletedFocusForSettings counts completed focus records whose
	// settings snapshot equals snapshot.
	CountCompletedFocusForSettings(snapshot SettingsSnapshot) (int, error)

	// StatsForSettings aggregates every record run under snapshot.
	StatsForSettings(snapshot SettingsSnapshot) (SettingsStats, error)
}

// EyeCareRepository persists the eye-care countdown snapshot.
type EyeCareRepository interface {
	LoadSnapshot() (snapshot EyeCareSnapshot, ok bool, err error)
	SaveSnapshot(snapshot EyeCareSnapshot) error
}

// Repositories is the set of repositories bound to one connection or
// transaction.
type Repositories interface {
	Settings() SettingsRepository
	SessionTracking() SessionTrackingRepository
	EyeCare() EyeCareRepository
}

// UnitOfWork runs groups of repository calls atomically.
type UnitOfWork interface {
	Repositories

	// InTransaction runs fn inside a transaction. A nil return commits;
	// an error or panic rolls back, and the error is returned unchanged.
	InTransaction(ctx context.Context, fn func(tx Repositories) error) error
}
