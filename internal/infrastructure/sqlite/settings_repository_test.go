package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

func TestSettingsRepository_LoadBeforeSave(t *testing.T) {
	db := newTestDB(t)
	_, ok, err := db.Settings().Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSettingsRepository_SaveOverwrites(t *testing.T) {
	db := newTestDB(t)
	repo := db.Settings()

	s := domain.DefaultSettings()
	require.NoError(t, repo.Save(s))

	s.WorkMinutes = 45
	s.DefaultBreakActivity = domain.ActivityStretching
	s.EyeCareEnabled = false
	require.NoError(t, repo.Save(s))

	got, ok, err := repo.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, s, got)
}

func TestEyeCareRepository_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := db.EyeCare()

	_, ok, err := repo.LoadSnapshot()
	require.NoError(t, err)
	require.False(t, ok)

	snap := domain.EyeCareSnapshot{SecondsUntilBreak: 600, SavedAt: time.Now().UnixMilli(), Active: true}
	require.NoError(t, repo.SaveSnapshot(snap))
	snap.SecondsUntilBreak = 595
	require.NoError(t, repo.SaveSnapshot(snap))

	got, ok, err := repo.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap, got)
}
