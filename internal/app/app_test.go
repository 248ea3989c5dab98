package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/standclock/internal/clock"
	"github.com/zjrosen/standclock/internal/eyecare"
	"github.com/zjrosen/standclock/internal/infrastructure/sqlite"
	"github.com/zjrosen/standclock/internal/log"
	"github.com/zjrosen/standclock/internal/notify"
	"github.com/zjrosen/standclock/internal/pubsub"
	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/settings"
	"github.com/zjrosen/standclock/internal/stats"
	"github.com/zjrosen/standclock/internal/testutil"
	"github.com/zjrosen/standclock/internal/timer"
	"github.com/zjrosen/standclock/internal/ui/toaster"
)

type harness struct {
	t        *testing.T
	fc       *clock.Fake
	db       *sqlite.DB
	timer    *timer.Engine
	eye      *eyecare.Scheduler
	stats    *stats.Engine
	settings *settings.Provider
	bell     *notify.Bell
	bellOut  *bytes.Buffer
	model    Model
}

func testSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.WorkMinutes = 1
	s.ShortBreakMinutes = 1
	s.LongBreakMinutes = 2
	return s
}

func newHarness(t *testing.T, configPath string, opts Options) *harness {
	t.Helper()
	ctx := context.Background()

	h := &harness{
		t:       t,
		fc:      clock.NewFake(time.Time{}),
		db:      testutil.NewTestDB(t),
		bellOut: &bytes.Buffer{},
	}
	seed := testSettings()
	h.settings = settings.NewProvider(h.db.Settings(), seed)
	require.NoError(t, h.settings.Reload(ctx))

	h.stats = stats.NewEngine(h.db)
	h.bell = notify.NewBell(h.bellOut, true)
	h.timer = timer.New(timer.Config{
		Settings: h.settings,
		Recorder: h.stats,
		Clock:    h.fc,
		Notifier: h.bell,
	})
	h.eye = eyecare.New(eyecare.DefaultConfig().WithSettings(seed),
		eyecare.WithClock(h.fc),
		eyecare.WithStore(h.db.EyeCare()),
		eyecare.WithNotifier(h.bell),
	)

	h.model = New(Services{
		Timer:      h.timer,
		EyeCare:    h.eye,
		Stats:      h.stats,
		Settings:   h.settings,
		Bell:       h.bell,
		Clock:      h.fc,
		ConfigPath: configPath,
	}, opts)

	t.Cleanup(func() {
		_ = h.model.Close()
		_ = h.timer.Close()
		h.eye.Close()
		h.stats.Close()
		h.settings.Close()
	})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) press(k string) tea.Cmd {
	h.t.Helper()
	return h.send(keyMsg(k))
}

func (h *harness) view() string {
	return ansi.Strip(h.model.View())
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func TestApp_InitialView(t *testing.T) {
	h := newHarness(t, "", Options{})

	view := h.view()
	require.Contains(t, view, "Focus")
	require.Contains(t, view, "01:00")
	require.Contains(t, view, "ready")
	require.Contains(t, view, "session 1 of 4")
	require.Contains(t, view, "Eyes: waiting (20:00)")
	require.Contains(t, view, "space start/pause")
	require.NotContains(t, view, "ctrl+x", "log toggle hidden without debug")
}

func TestApp_ToggleStartsTimerAndEyeCare(t *testing.T) {
	h := newHarness(t, "", Options{})

	h.press(" ")

	require.True(t, h.timer.State().Running)
	eye := h.eye.State()
	require.True(t, eye.Active)
	require.True(t, eye.Counting)
	require.Contains(t, h.view(), "running")
	require.Contains(t, h.view(), "Eyes: next break in 20:00")

	h.press(" ")

	require.False(t, h.timer.State().Running)
	require.False(t, h.eye.State().Counting)
	require.Contains(t, h.view(), "paused")
}

func TestApp_SwitchToBreakStopsEyeCounting(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.press(" ")
	require.True(t, h.eye.State().Counting)

	h.press("2")

	require.Equal(t, domain.ModeShortBreak, h.timer.State().Mode)
	require.False(t, h.eye.State().Counting)
	require.Contains(t, h.view(), "Short break")

	h.press("1")
	h.press(" ")
	require.True(t, h.eye.State().Counting)
}

func TestApp_ForwardsStateFromTimerEvents(t *testing.T) {
	h := newHarness(t, "", Options{})

	// Start the engine behind the host's back; the event catches it up.
	require.NoError(t, h.timer.Start())
	h.send(pubsub.Event[timer.Event]{Type: pubsub.RunStateEvent, Payload: timer.Event{State: h.timer.State()}})

	require.True(t, h.eye.State().Counting)
}

func TestApp_ActivityPicker(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.press("2")
	require.Contains(t, h.view(), "activity: none")

	h.press("a")
	require.True(t, h.model.showPicker)
	require.Contains(t, h.view(), "Break activity")

	// none -> standing -> walking
	h.press("j")
	h.press("j")
	cmd := h.press("enter")
	require.NotNil(t, cmd)
	h.send(cmd())

	require.False(t, h.model.showPicker)
	require.Equal(t, domain.ActivityWalking, h.timer.State().BreakActivity)
	require.Contains(t, h.view(), "activity: walking")
	require.False(t, h.timer.State().Running, "enter went to the picker, not the timer")
}

func TestApp_ActivityPickerCancel(t *testing.T) {
	h := newHarness(t, "", Options{})
	require.NoError(t, h.timer.SelectBreakActivity(domain.ActivityStretching))

	h.press("a")
	require.Equal(t, string(domain.ActivityStretching), h.model.picker.Selected().Value, "current activity is preselected")

	h.press("j")
	cmd := h.press("esc")
	require.NotNil(t, cmd)
	h.send(cmd())

	require.False(t, h.model.showPicker)
	require.Equal(t, domain.ActivityStretching, h.timer.State().BreakActivity)
	require.NotContains(t, h.view(), "Break activity")
}

func TestApp_EyeBreakOverlay(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.send(tea.WindowSizeMsg{Width: 80, Height: 30})

	h.send(pubsub.Event[eyecare.State]{
		Type: pubsub.BreakDueEvent,
		Payload: eyecare.State{
			Enabled:          true,
			Phase:            eyecare.PhaseBreak,
			BreakSecondsLeft: 15,
			SnoozesLeft:      2,
		},
	})

	view := h.view()
	require.Contains(t, view, "Eye break")
	require.Contains(t, view, "00:15")
	require.Contains(t, view, "s snooze (2 left)")
}

func TestApp_SnoozedLine(t *testing.T) {
	h := newHarness(t, "", Options{})

	h.send(pubsub.Event[eyecare.State]{Payload: eyecare.State{
		Enabled:           true,
		Phase:             eyecare.PhaseSnoozed,
		Snoozed:           true,
		SnoozeSecondsLeft: 190,
		SnoozesLeft:       1,
	}})

	require.Contains(t, h.view(), "Eyes: snoozed 03:10 (1 left)")
	require.NotContains(t, h.view(), "Eye break")
}

func TestApp_SnoozeAndDismissWithoutBreakIgnored(t *testing.T) {
	h := newHarness(t, "", Options{})

	require.Nil(t, h.press("s"))
	require.Nil(t, h.press("esc"))
	require.False(t, h.model.toaster.Visible())
}

func TestApp_SoundToggleSavesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	h := newHarness(t, path, Options{})

	cmd := h.press("m")

	require.NotNil(t, cmd)
	require.False(t, h.bell.Enabled())
	require.Contains(t, h.view(), "Sound off")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "sound:")
	require.Contains(t, string(data), "enabled: false")

	h.press("m")
	require.True(t, h.bell.Enabled())
}

func TestApp_ReportShowsValidationErrors(t *testing.T) {
	h := newHarness(t, "", Options{})

	next, cmd := h.model.report(&domain.ValidationError{Field: "work_minutes", Value: 0})
	h.model = next.(Model)

	require.NotNil(t, cmd)
	require.Contains(t, h.view(), "Invalid work_minutes: 0")

	next, _ = h.model.report(eyecare.ErrSnoozeLimit)
	h.model = next.(Model)
	require.Contains(t, h.view(), "No snoozes left")
}

func TestApp_ToastDismiss(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.press("m")
	require.True(t, h.model.toaster.Visible())

	h.send(toaster.DismissMsg{Seq: 1})

	require.False(t, h.model.toaster.Visible())
}

func TestApp_SettingsEventAppliesToEngines(t *testing.T) {
	h := newHarness(t, "", Options{})

	s := testSettings()
	s.WorkMinutes = 2
	s.EyeCareEnabled = false
	require.NoError(t, h.settings.Update(context.Background(), s))

	h.send(pubsub.Event[domain.Settings]{Type: pubsub.UpdatedEvent, Payload: s})

	require.Equal(t, 120, h.timer.State().RemainingSeconds)
	require.False(t, h.eye.State().Enabled)
	require.Contains(t, h.view(), "Eyes: reminders off")
}

func TestApp_SettingsEventChangesEyeInterval(t *testing.T) {
	h := newHarness(t, "", Options{})

	s := testSettings()
	s.EyeCareIntervalMinutes = 30
	h.send(pubsub.Event[domain.Settings]{Type: pubsub.UpdatedEvent, Payload: s})

	require.Equal(t, 30*60, h.eye.State().SecondsUntilBreak)
}

func TestApp_StatsEvents(t *testing.T) {
	h := newHarness(t, "", Options{})
	today := domain.DateKeyOf(h.fc.Now())

	h.send(statsLoadedMsg{
		today:  domain.DailyStats{Date: today, WorkSessionsCompleted: 3, TotalWorkTime: 4500, FocusScore: 80},
		streak: domain.StreakInfo{CurrentStreak: 4},
	})
	require.Contains(t, h.view(), "Today: 3 focus · 1h 15m · score 80 · streak 4 days")

	// Aggregates for other dates do not replace today's.
	cmd := h.send(pubsub.Event[domain.DailyStats]{Payload: domain.DailyStats{Date: "2001-01-01", WorkSessionsCompleted: 9}})
	require.NotNil(t, cmd)
	require.Equal(t, 3, h.model.today.WorkSessionsCompleted)

	h.send(pubsub.Event[domain.DailyStats]{Payload: domain.DailyStats{Date: today, WorkSessionsCompleted: 4}})
	require.Equal(t, 4, h.model.today.WorkSessionsCompleted)
}

func TestApp_LoadStatsReadsEngine(t *testing.T) {
	h := newHarness(t, "", Options{})
	today := domain.DateKeyOf(h.fc.Now())
	require.NoError(t, h.stats.RecordSession(context.Background(), testutil.NewRecord(today)))

	msg := h.model.loadStats()()

	loaded, ok := msg.(statsLoadedMsg)
	require.True(t, ok)
	require.Equal(t, 1, loaded.today.WorkSessionsCompleted)
	require.Equal(t, 1, loaded.streak.CurrentStreak)
}

func TestApp_PersistFailedShowsToast(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})

	st := h.timer.State()
	st.LastError = errors.New("disk full")
	h.send(pubsub.Event[timer.Event]{
		Type:    pubsub.PersistFailedEvent,
		Payload: timer.Event{State: st, Err: st.LastError},
	})

	view := h.view()
	require.Contains(t, view, "Session not saved: disk full")
	require.Contains(t, view, "Last save failed: disk full")
}

func TestApp_BlurDetachesWhenEnabled(t *testing.T) {
	h := newHarness(t, "", Options{PauseOnBlur: true})
	h.press(" ")

	h.send(tea.BlurMsg{})
	require.False(t, h.timer.State().Running)
	require.False(t, h.eye.State().Counting)

	h.send(tea.FocusMsg{})
	require.True(t, h.timer.State().Running)
	require.True(t, h.eye.State().Counting)
}

func TestApp_BlurIgnoredByDefault(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.press(" ")

	h.send(tea.BlurMsg{})

	require.True(t, h.timer.State().Running)
}

func TestApp_ResumeReattaches(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.press(" ")
	h.timer.Detach()

	h.send(tea.ResumeMsg{})

	require.True(t, h.timer.State().Running)
}

func TestApp_DebugLogTail(t *testing.T) {
	h := newHarness(t, "", Options{Debug: true})
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})

	for i := 0; i < 8; i++ {
		h.send(log.LogEvent{Payload: "line " + string(rune('a'+i))})
	}
	require.Len(t, h.model.logTail, logTailSize)
	require.Equal(t, "line h", h.model.logTail[logTailSize-1])
	require.NotContains(t, h.view(), "line h")

	h.press("ctrl+x")

	view := h.view()
	require.Contains(t, view, "line h")
	require.NotContains(t, view, "line a")
}

func TestApp_Quit(t *testing.T) {
	h := newHarness(t, "", Options{})

	cmd := h.press("q")

	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Error(t, h.model.ctx.Err())
}

func TestApp_HelpToggle(t *testing.T) {
	h := newHarness(t, "", Options{})
	require.NotContains(t, h.view(), "snooze eye break")

	h.press("?")

	require.Contains(t, h.view(), "snooze eye break")
}

func TestApp_DBChangedReloadsSettings(t *testing.T) {
	h := newHarness(t, "", Options{})

	// Another process saves new settings into the same database.
	s := testSettings()
	s.ShortBreakMinutes = 7
	require.NoError(t, h.db.Settings().Save(s))

	cmd := h.send(dbChangedMsg{})

	require.NotNil(t, cmd)
	require.Equal(t, 7, h.settings.Current().ShortBreakMinutes)
}

func TestApp_WatchesDatabase(t *testing.T) {
	h := newHarness(t, "", Options{})
	dbPath := filepath.Join(t.TempDir(), "standclock.db")
	require.NoError(t, os.WriteFile(dbPath, nil, 0o600))

	m := New(Services{
		Timer:    h.timer,
		EyeCare:  h.eye,
		Stats:    h.stats,
		Settings: h.settings,
		Clock:    h.fc,
		DBPath:   dbPath,
	}, Options{})
	defer func() { require.NoError(t, m.Close()) }()

	require.NotNil(t, m.watcherHandle)
	require.NotNil(t, m.waitForDBChange())
}

func TestActivityPicker_Options(t *testing.T) {
	p := activityPicker(domain.ActivityNone)
	require.Equal(t, "", p.Selected().Value)

	view := ansi.Strip(p.View())
	require.Contains(t, view, "none")
	for _, a := range domain.BreakActivities {
		require.Contains(t, view, string(a))
	}
	require.Contains(t, view, "walking standing")

	require.Equal(t, string(domain.ActivityOther), activityPicker(domain.ActivityOther).Selected().Value)
}

func TestMMSS(t *testing.T) {
	require.Equal(t, "00:00", mmss(-3))
	require.Equal(t, "01:05", mmss(65))
	require.True(t, strings.HasPrefix(mmss(3600), "60:"))
}
