package sqlite

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

func TestSessionTracking_InsertAndReadBack(t *testing.T) {
	db := newTestDB(t)
	repo := db.SessionTracking()

	start := time.Date(2026, 2, 3, 10, 0, 0, 0, time.Local)
	rec := domain.NewSessionRecord(domain.ModeShortBreak, domain.OutcomeCompleted, 300, 300,
		start, start.Add(5*time.Minute), domain.ActivityWalking, domain.DefaultSnapshot())

	id, err := repo.InsertSession(rec)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := repo.SessionsForDate("2026-02-03")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, id, got[0].ID)
	require.Equal(t, rec.GUID, got[0].GUID)
	require.Equal(t, domain.ModeShortBreak, got[0].Mode)
	require.Equal(t, domain.OutcomeCompleted, got[0].Outcome)
	require.Equal(t, 300, got[0].ActualSeconds)
	require.Equal(t, domain.ActivityWalking, got[0].BreakActivity)
	require.Equal(t, domain.DefaultSnapshot(), got[0].Settings)
	require.True(t, rec.StartedAt.Equal(got[0].StartedAt))
	require.True(t, rec.CompletedAt.Equal(got[0].CompletedAt))
}

func TestSessionTracking_DuplicateGUID(t *testing.T) {
	db := newTestDB(t)
	repo := db.SessionTracking()

	rec := focusRecord("2026-02-03", domain.OutcomeCompleted, 1500)
	_, err := repo.InsertSession(rec)
	require.NoError(t, err)

	_, err = repo.InsertSession(rec)
	var dup *domain.DuplicateSessionError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, rec.GUID, dup.GUID)
	require.Equal(t, 1, countSessions(t, db))
}

func TestSessionTracking_InsertRejectsInvalidRecord(t *testing.T) {
	db := newTestDB(t)
	rec := focusRecord("2026-02-03", domain.OutcomeCompleted, 1500)
	rec.PlannedSeconds = 0

	_, err := db.SessionTracking().InsertSession(rec)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestSessionTracking_SessionsForDateOrdered(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		db, err := NewDB(t.TempDir() + "/standclock.db")
		require.NoError(rt, err)
		defer db.Close()
		repo := db.SessionTracking()

		day, _ := domain.ParseDateKey("2026-05-05")
		offsets := rapid.SliceOfNDistinct(rapid.IntRange(0, 20*60), 1, 12, rapid.ID[int]).Draw(rt, "offsets")
		for _, off := range offsets {
			start := day.Add(time.Duration(off) * time.Minute)
			rec := domain.NewSessionRecord(domain.ModeFocus, domain.OutcomeSkipped, 1500, 60, start, start.Add(time.Minute), domain.ActivityNone, domain.DefaultSnapshot())
			_, err := repo.InsertSession(rec)
			require.NoError(rt, err)
		}

		got, err := repo.SessionsForDate("2026-05-05")
		require.NoError(rt, err)
		require.Len(rt, got, len(offsets))
		require.True(rt, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].StartedAt.Before(got[j].StartedAt) }))
	})
}

func TestSessionTracking_DailyStatsUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := db.SessionTracking()

	stats, ok, err := repo.DailyStats("2026-02-03")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, domain.EmptyDailyStats("2026-02-03"), stats)

	in := domain.DailyStats{Date: "2026-02-03", WorkSessionsCompleted: 2, TotalSessionsStarted: 3, TotalWorkTime: 3000, CompletionRate: 67, FocusScore: 80, IsStreakDay: true}
	require.NoError(t, repo.UpsertDailyStats(in))
	in.WorkSessionsCompleted = 3
	require.NoError(t, repo.UpsertDailyStats(in))

	stats, ok, err = repo.DailyStats("2026-02-03")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, stats)
}

func TestSessionTracking_DailyStatsRange(t *testing.T) {
	db := newTestDB(t)
	repo := db.SessionTracking()
	for _, d := range []string{"2026-01-30", "2026-02-01", "2026-02-02", "2026-02-05"} {
		require.NoError(t, repo.UpsertDailyStats(domain.DailyStats{Date: d, TotalSessionsStarted: 1}))
	}

	got, err := repo.DailyStatsRange("2026-02-01", "2026-02-05")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "2026-02-01", got[0].Date)
	require.Equal(t, "2026-02-05", got[2].Date)
}

func TestSessionTracking_AllTimeStats(t *testing.T) {
	db := newTestDB(t)
	repo := db.SessionTracking()

	empty, err := repo.AllTimeStats()
	require.NoError(t, err)
	require.Equal(t, domain.AllTimeStats{}, empty)

	_, err = repo.InsertSession(focusRecord("2026-02-03", domain.OutcomeCompleted, 1500))
	require.NoError(t, err)
	_, err = repo.InsertSession(focusRecord("2026-02-04", domain.OutcomeSkipped, 100))
	require.NoError(t, err)
	require.NoError(t, repo.UpsertDailyStats(domain.DailyStats{Date: "2026-02-03", TotalWorkTime: 5400, FocusScore: 91}))
	require.NoError(t, repo.UpsertDailyStats(domain.DailyStats{Date: "2026-02-04", TotalWorkTime: 900, FocusScore: 40}))

	all, err := repo.AllTimeStats()
	require.NoError(t, err)
	require.Equal(t, 1, all.TotalSessions)
	require.Equal(t, 1.8, all.TotalFocusHours)
	require.Equal(t, 91, all.BestFocusScore)
}

func TestSessionTracking_Streak(t *testing.T) {
	db := newTestDB(t)
	repo := db.SessionTracking()

	info, err := repo.Streak()
	require.NoError(t, err)
	require.Equal(t, domain.StreakInfo{}, info)

	want := domain.StreakInfo{CurrentStreak: 3, LongestStreak: 5, LastActivityDate: "2026-02-03"}
	require.NoError(t, repo.SaveStreak(want))
	info, err = repo.Streak()
	require.NoError(t, err)
	require.Equal(t, want, info)
}

func TestSessionTracking_SettingsAggregates(t *testing.T) {
	db := newTestDB(t)
	repo := db.SessionTracking()

	long := domain.SettingsSnapshot{WorkMinutes: 50, ShortBreakMinutes: 10, LongBreakMinutes: 30, SessionsBeforeLongBreak: 2}

	_, err := repo.InsertSession(focusRecord("2026-02-03", domain.OutcomeCompleted, 1500))
	require.NoError(t, err)
	_, err = repo.InsertSession(focusRecord("2026-02-03", domain.OutcomeAbandoned, 200))
	require.NoError(t, err)
	other := focusRecord("2026-02-03", domain.OutcomeCompleted, 3000)
	other.PlannedSeconds = 3000
	other.Settings = long
	_, err = repo.InsertSession(other)
	require.NoError(t, err)

	count, err := repo.CountCompletedFocusForSettings(domain.DefaultSnapshot())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	stats, err := repo.StatsForSettings(domain.DefaultSnapshot())
	require.NoError(t, err)
	require.Equal(t, domain.SettingsStats{TotalSessions: 2, CompletedSessions: 1, AverageCompletionRate: 50, TotalWorkTime: 1500}, stats)

	none, err := repo.StatsForSettings(domain.SettingsSnapshot{WorkMinutes: 1, ShortBreakMinutes: 1, LongBreakMinutes: 1, SessionsBeforeLongBreak: 1})
	require.NoError(t, err)
	require.Equal(t, domain.SettingsStats{}, none)
}
