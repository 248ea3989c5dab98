package stats

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/standclock/internal/cachemanager"
	"github.com/zjrosen/standclock/internal/log"
	"github.com/zjrosen/standclock/internal/pubsub"
	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/tracing"
)

const dailyCacheTTL = 5 * time.Minute

// maxRangeDays bounds DateRangeStats so a typo cannot allocate years of rows.
const maxRangeDays = 366

// Engine appends session records and answers statistics queries.
// Writes go through one transaction each; reads never return errors and fall
// back to zero values.
type Engine struct {
	uow    domain.UnitOfWork
	daily  *cachemanager.ReadThroughCache[string, domain.DailyStats, string]
	broker *pubsub.Broker[domain.DailyStats]
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	cache bool
}

// WithDailyCache toggles the in-memory DailyStats cache. On by default.
func WithDailyCache(enabled bool) Option {
	return func(o *engineOptions) { o.cache = enabled }
}

// NewEngine returns an Engine over uow.
func NewEngine(uow domain.UnitOfWork, opts ...Option) *Engine {
	o := engineOptions{cache: true}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		uow:    uow,
		broker: pubsub.NewBroker[domain.DailyStats](),
	}
	cache := cachemanager.NewInMemoryCacheManager[string, domain.DailyStats](
		"daily-stats", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)
	e.daily = cachemanager.NewReadThroughCache[string, domain.DailyStats, string](cache, e.loadDaily, !o.cache)
	return e
}

func (e *Engine) loadDaily(_ context.Context, date string) (domain.DailyStats, error) {
	s, _, err := e.uow.SessionTracking().DailyStats(date)
	return s, err
}

// Subscribe streams the recomputed DailyStats after every successful write.
func (e *Engine) Subscribe(ctx context.Context) <-chan pubsub.Event[domain.DailyStats] {
	return e.broker.Subscribe(ctx)
}

// Close stops event delivery.
func (e *Engine) Close() {
	e.broker.Close()
}

// RecordSession appends record, recomputes its date's aggregate and, for a
// completed focus session, steps the streak. All of it commits or none of it
// does. A record whose GUID was already written is ignored.
func (e *Engine) RecordSession(ctx context.Context, record domain.SessionRecord) (err error) {
	ctx, span := tracing.Start(ctx, tracing.SpanStatsRecord,
		attribute.String(tracing.AttrSessionGUID, record.GUID),
		attribute.String(tracing.AttrSessionMode, string(record.Mode)),
		attribute.String(tracing.AttrSessionOutcome, string(record.Outcome)),
		attribute.String(tracing.AttrSessionDate, record.Date),
		attribute.Int(tracing.AttrActualSeconds, record.ActualSeconds),
	)
	defer func() { tracing.End(span, err) }()

	if err := record.Validate(); err != nil {
		return err
	}

	var daily domain.DailyStats
	err = e.uow.InTransaction(ctx, func(tx domain.Repositories) error {
		repo := tx.SessionTracking()
		if _, err := repo.InsertSession(record); err != nil {
			return err
		}
		var err error
		daily, err = recompute(repo, record.Date)
		if err != nil {
			return err
		}
		if record.IsCompletedFocus() {
			if _, err := stepStreak(repo, record.Date); err != nil {
				return err
			}
		}
		return nil
	})

	var dup *domain.DuplicateSessionError
	if errors.As(err, &dup) {
		log.Warn(log.CatStats, "Ignoring already recorded session", "guid", dup.GUID)
		return nil
	}
	if err != nil {
		return asPersistenceError("record session", err)
	}

	e.invalidate(ctx, record.Date)
	e.broker.Publish(pubsub.UpdatedEvent, daily)
	log.Debug(log.CatStats, "Recorded session",
		"mode", record.Mode, "outcome", record.Outcome, "actual", record.ActualSeconds, "date", record.Date)
	return nil
}

// RecomputeDay rebuilds date's aggregate from its records.
func (e *Engine) RecomputeDay(ctx context.Context, date string) (stats domain.DailyStats, err error) {
	ctx, span := tracing.Start(ctx, tracing.SpanStatsRecompute, attribute.String(tracing.AttrSessionDate, date))
	defer func() { tracing.End(span, err) }()

	err = e.uow.InTransaction(ctx, func(tx domain.Repositories) error {
		var err error
		stats, err = recompute(tx.SessionTracking(), date)
		return err
	})
	if err != nil {
		return domain.EmptyDailyStats(date), asPersistenceError("recompute day", err)
	}
	e.invalidate(ctx, date)
	e.broker.Publish(pubsub.UpdatedEvent, stats)
	return stats, nil
}

// UpdateStreak applies a completed-focus day to the streak singleton.
func (e *Engine) UpdateStreak(ctx context.Context, date string) (info domain.StreakInfo, err error) {
	ctx, span := tracing.Start(ctx, tracing.SpanStatsUpdateStreak, attribute.String(tracing.AttrSessionDate, date))
	defer func() {
		span.SetAttributes(
			attribute.Int(tracing.AttrStreakCurrent, info.CurrentStreak),
			attribute.Int(tracing.AttrStreakLongest, info.LongestStreak),
		)
		tracing.End(span, err)
	}()

	err = e.uow.InTransaction(ctx, func(tx domain.Repositories) error {
		var err error
		info, err = stepStreak(tx.SessionTracking(), date)
		return err
	})
	if err != nil {
		return domain.StreakInfo{}, asPersistenceError("update streak", err)
	}
	return info, nil
}

func recompute(repo domain.SessionTrackingRepository, date string) (domain.DailyStats, error) {
	records, err := repo.SessionsForDate(date)
	if err != nil {
		return domain.DailyStats{}, err
	}
	daily := Compute(date, records)
	if err := repo.UpsertDailyStats(daily); err != nil {
		return domain.DailyStats{}, err
	}
	return daily, nil
}

func stepStreak(repo domain.SessionTrackingRepository, date string) (domain.StreakInfo, error) {
	current, err := repo.Streak()
	if err != nil {
		return domain.StreakInfo{}, err
	}
	next, err := NextStreak(current, date)
	if err != nil {
		return domain.StreakInfo{}, err
	}
	if next == current {
		return current, nil
	}
	if err := repo.SaveStreak(next); err != nil {
		return domain.StreakInfo{}, err
	}
	return next, nil
}

// Invalidate drops cached aggregates for dates, for when another process
// wrote the database.
func (e *Engine) Invalidate(ctx context.Context, dates ...string) {
	for _, d := range dates {
		e.invalidate(ctx, d)
	}
}

func (e *Engine) invalidate(ctx context.Context, date string) {
	if err := e.daily.Invalidate(ctx, date); err != nil {
		log.ErrorErr(log.CatCache, "Failed to invalidate daily stats", err, "date", date)
	}
}

func asPersistenceError(op string, err error) error {
	var perr *domain.PersistenceError
	var verr *domain.ValidationError
	if errors.As(err, &perr) || errors.As(err, &verr) {
		return err
	}
	return &domain.PersistenceError{Op: op, Err: err}
}

// DailyStats returns date's aggregate, or the empty aggregate when the date
// has no row or the read fails.
func (e *Engine) DailyStats(ctx context.Context, date string) domain.DailyStats {
	s, err := e.daily.Get(ctx, date, date, dailyCacheTTL)
	if err != nil {
		log.ErrorErr(log.CatStats, "Failed to load daily stats", err, "date", date)
		return domain.EmptyDailyStats(date)
	}
	return s
}

// DateRangeStats returns one aggregate per date from from to to inclusive.
// Dates without a row are filled with empty aggregates. An invalid or
// inverted range yields nil.
func (e *Engine) DateRangeStats(ctx context.Context, from, to string) []domain.DailyStats {
	days, err := domain.DaysBetween(from, to)
	if err != nil || days < 0 {
		log.Warn(log.CatStats, "Invalid date range", "from", from, "to", to)
		return nil
	}
	if days >= maxRangeDays {
		log.Warn(log.CatStats, "Date range truncated", "from", from, "to", to, "max_days", maxRangeDays)
		from, _ = domain.AddDays(to, -(maxRangeDays - 1))
		days = maxRangeDays - 1
	}

	rows, err := e.uow.SessionTracking().DailyStatsRange(from, to)
	if err != nil {
		log.ErrorErr(log.CatStats, "Failed to load date range", err, "from", from, "to", to)
		rows = nil
	}
	byDate := make(map[string]domain.DailyStats, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}

	out := make([]domain.DailyStats, 0, days+1)
	for i := 0; i <= days; i++ {
		date, _ := domain.AddDays(from, i)
		if s, ok := byDate[date]; ok {
			out = append(out, s)
		} else {
			out = append(out, domain.EmptyDailyStats(date))
		}
	}
	return out
}

// Summary condenses the days days ending at end.
func (e *Engine) Summary(ctx context.Context, end string, days int) RangeSummary {
	if days <= 0 {
		return RangeSummary{}
	}
	from, err := domain.AddDays(end, -(days - 1))
	if err != nil {
		log.Warn(log.CatStats, "Invalid summary end date", "end", end)
		return RangeSummary{}
	}
	return Summarize(e.DateRangeStats(ctx, from, end))
}

// AllTimeStats summarises the whole log; zero on failure.
func (e *Engine) AllTimeStats(ctx context.Context) domain.AllTimeStats {
	s, err := e.uow.SessionTracking().AllTimeStats()
	if err != nil {
		log.ErrorErr(log.CatStats, "Failed to load all-time stats", err)
		return domain.AllTimeStats{}
	}
	return s
}

// SessionsForDate returns date's records oldest first; nil on failure.
func (e *Engine) SessionsForDate(ctx context.Context, date string) []domain.SessionRecord {
	records, err := e.uow.SessionTracking().SessionsForDate(date)
	if err != nil {
		log.ErrorErr(log.CatStats, "Failed to load sessions", err, "date", date)
		return nil
	}
	return records
}

// Streak returns the streak singleton; zero on failure.
func (e *Engine) Streak(ctx context.Context) domain.StreakInfo {
	info, err := e.uow.SessionTracking().Streak()
	if err != nil {
		log.ErrorErr(log.CatStats, "Failed to load streak", err)
		return domain.StreakInfo{}
	}
	return info
}

// SessionsCountForSettings counts completed focus sessions run under exactly
// snapshot.
func (e *Engine) SessionsCountForSettings(ctx context.Context, snapshot domain.SettingsSnapshot) int {
	n, err := e.uow.SessionTracking().CountCompletedFocusForSettings(snapshot)
	if err != nil {
		log.ErrorErr(log.CatStats, "Failed to count sessions for settings", err, "settings", snapshot)
		return 0
	}
	return n
}

// StatsForSettings aggregates every session run under snapshot.
func (e *Engine) StatsForSettings(ctx context.Context, snapshot domain.SettingsSnapshot) domain.SettingsStats {
	s, err := e.uow.SessionTracking().StatsForSettings(snapshot)
	if err != nil {
		log.ErrorErr(log.CatStats, "Failed to load stats for settings", err, "settings", snapshot)
		return domain.SettingsStats{}
	}
	return s
}
