package tracing

// Span names.
const (
	SpanDBTransaction     = "db.transaction"
	SpanDBMigrate         = "db.migrate"
	SpanStatsRecord       = "stats.record_session"
	SpanStatsRecompute    = "stats.recompute_day"
	SpanStatsUpdateStreak = "stats.update_streak"
)

// Attribute keys.
const (
	AttrSessionGUID    = "session.guid"
	AttrSessionMode    = "session.mode"
	AttrSessionOutcome = "session.outcome"
	AttrSessionDate    = "session.date"
	AttrActualSeconds  = "session.actual_seconds"

	AttrMigrationVersion = "db.migration.version"

	AttrStreakCurrent = "streak.current"
	AttrStreakLongest = "streak.longest"

	AttrErrorMessage = "error.message"
)
