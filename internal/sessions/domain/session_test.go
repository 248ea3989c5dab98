package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerMode(t *testing.T) {
	require.True(t, ModeFocus.IsValid())
	require.False(t, TimerMode("POMODORO").IsValid())
	require.False(t, ModeFocus.IsBreak())
	require.True(t, ModeShortBreak.IsBreak())
	require.True(t, ModeLongBreak.IsBreak())
	require.Equal(t, "pomodoro", ModeFocus.String())
}

func TestParseBreakActivity(t *testing.T) {
	a, err := ParseBreakActivity("eye-rest")
	require.NoError(t, err)
	require.Equal(t, ActivityEyeRest, a)

	a, err = ParseBreakActivity("")
	require.NoError(t, err)
	require.Equal(t, ActivityNone, a)

	_, err = ParseBreakActivity("napping")
	require.Error(t, err)
}

func TestNewSessionRecord(t *testing.T) {
	start := time.Date(2026, 3, 14, 23, 50, 0, 0, time.Local)
	end := start.Add(25 * time.Minute)

	rec := NewSessionRecord(ModeFocus, OutcomeCompleted, 1500, 1500, start, end, ActivityNone, DefaultSnapshot())

	require.NotEmpty(t, rec.GUID)
	require.Equal(t, int64(0), rec.ID)
	require.Equal(t, "2026-03-15", rec.Date, "date follows the end, not the start")
	require.True(t, rec.IsCompletedFocus())
	require.NoError(t, rec.Validate())

	other := NewSessionRecord(ModeFocus, OutcomeCompleted, 1500, 1500, start, end, ActivityNone, DefaultSnapshot())
	require.NotEqual(t, rec.GUID, other.GUID)
}

func TestSessionRecord_Validate(t *testing.T) {
	base := NewSessionRecord(ModeShortBreak, OutcomeSkipped, 300, 40, time.Now(), time.Now(), ActivityWalking, DefaultSnapshot())
	require.NoError(t, base.Validate())

	bad := base
	bad.Mode = "nap"
	require.Error(t, bad.Validate())

	bad = base
	bad.Outcome = "paused"
	require.Error(t, bad.Validate())

	bad = base
	bad.PlannedSeconds = 0
	require.Error(t, bad.Validate())

	bad = base
	bad.ActualSeconds = -1
	require.Error(t, bad.Validate())

	bad = base
	bad.BreakActivity = "napping"
	require.Error(t, bad.Validate())
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2026-01-01", "2026-01-01", 0},
		{"2026-01-01", "2026-01-02", 1},
		{"2026-01-31", "2026-02-01", 1},
		{"2026-03-07", "2026-03-09", 2},
		{"2024-02-28", "2024-03-01", 2},
		{"2026-01-05", "2026-01-01", -4},
	}
	for _, tt := range tests {
		got, err := DaysBetween(tt.a, tt.b)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "%s -> %s", tt.a, tt.b)
	}

	_, err := DaysBetween("2026-13-01", "2026-01-01")
	require.Error(t, err)
}

func TestAddDaysAndParse(t *testing.T) {
	next, err := AddDays("2026-12-31", 1)
	require.NoError(t, err)
	require.Equal(t, "2027-01-01", next)

	midnight, err := ParseDateKey("2026-06-01")
	require.NoError(t, err)
	require.Equal(t, "2026-06-01", DateKeyOf(midnight))
}
