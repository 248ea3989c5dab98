package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/standclock/internal/clock"
	"github.com/zjrosen/standclock/internal/notify"
	"github.com/zjrosen/standclock/internal/pubsub"
	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// fakeRecorder collects records and optionally fails every write.
type fakeRecorder struct {
	mu      sync.Mutex
	records []domain.SessionRecord
	err     error
}

func (r *fakeRecorder) RecordSession(_ context.Context, rec domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRecorder) all() []domain.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SessionRecord(nil), r.records...)
}

type harness struct {
	engine   *Engine
	clock    *clock.Fake
	recorder *fakeRecorder
	alerts   *[]notify.Kind
}

func newHarness(t testing.TB, settings domain.Settings) *harness {
	t.Helper()
	fc := clock.NewFake(time.Time{})
	rec := &fakeRecorder{}
	var mu sync.Mutex
	alerts := []notify.Kind{}
	e := New(Config{
		Settings: StaticSettings(settings),
		Recorder: rec,
		Clock:    fc,
		Notifier: notify.Func(func(k notify.Kind) {
			mu.Lock()
			defer mu.Unlock()
			alerts = append(alerts, k)
		}),
	})
	t.Cleanup(func() { _ = e.Close() })
	return &harness{engine: e, clock: fc, recorder: rec, alerts: &alerts}
}

// run advances the fake clock one second per tick and delivers the tick
// directly, bypassing the ticker goroutine.
func (h *harness) run(seconds int) {
	for i := 0; i < seconds; i++ {
		h.clock.Advance(time.Second)
		h.engine.mu.Lock()
		if h.engine.running {
			h.engine.tickLocked()
		}
		h.engine.mu.Unlock()
	}
}

func (h *harness) flushed(t testing.TB) []domain.SessionRecord {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.engine.Flush(ctx))
	return h.recorder.all()
}

func TestEngine_InitialState(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())
	s := h.engine.State()

	require.Equal(t, domain.ModeFocus, s.Mode)
	require.Equal(t, 1500, s.RemainingSeconds)
	require.False(t, s.Running)
	require.False(t, s.HasActiveSession)
	require.Equal(t, "25:00", s.Clock())
	require.Zero(t, h.engine.Progress())
}

func TestEngine_FullFocusSessionCompletes(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())
	start := h.clock.Now()

	require.NoError(t, h.engine.Start())
	h.run(1500)

	records := h.flushed(t)
	require.Len(t, records, 1)
	rec := records[0]
	require.Equal(t, domain.ModeFocus, rec.Mode)
	require.Equal(t, domain.OutcomeCompleted, rec.Outcome)
	require.Equal(t, 1500, rec.PlannedSeconds)
	require.Equal(t, 1500, rec.ActualSeconds)
	require.Equal(t, start, rec.StartedAt)
	require.Equal(t, start.Add(1500*time.Second), rec.CompletedAt)
	require.Equal(t, domain.DefaultSnapshot(), rec.Settings)
	require.NotEmpty(t, rec.GUID)

	s := h.engine.State()
	require.Equal(t, domain.ModeShortBreak, s.Mode)
	require.Equal(t, 300, s.RemainingSeconds)
	require.Equal(t, 1, s.CompletedFocusCount)
	require.False(t, s.Running, "next mode never auto-starts")
	require.False(t, s.HasActiveSession)
	require.Contains(t, *h.alerts, notify.KindSessionComplete)
}

func TestEngine_SessionPastMidnightCountsForEndDay(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())
	h.clock.Set(time.Date(2024, 1, 1, 23, 50, 0, 0, time.Local))

	require.NoError(t, h.engine.Start())
	h.run(1500)

	records := h.flushed(t)
	require.Len(t, records, 1)
	require.Equal(t, "2024-01-02", records[0].Date)
	require.Equal(t, 1, records[0].StartedAt.Day())
	require.Equal(t, 2, records[0].CompletedAt.Day())
}

func TestEngine_FourFocusSessionsEarnLongBreak(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())

	var breaks []domain.TimerMode
	for i := 0; i < 4; i++ {
		require.NoError(t, h.engine.Start())
		h.run(1500)
		s := h.engine.State()
		breaks = append(breaks, s.Mode)

		require.NoError(t, h.engine.Start())
		h.run(s.RemainingSeconds)
		require.Equal(t, domain.ModeFocus, h.engine.State().Mode)
	}

	require.Equal(t, []domain.TimerMode{
		domain.ModeShortBreak, domain.ModeShortBreak, domain.ModeShortBreak, domain.ModeLongBreak,
	}, breaks)
	require.Equal(t, 4, h.engine.State().CompletedFocusCount)
	require.Len(t, h.flushed(t), 8)
}

func TestEngine_PausedTimeIsExcluded(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())

	require.NoError(t, h.engine.Start())
	h.run(600)
	h.engine.Pause()
	h.clock.Advance(10 * time.Minute)
	h.run(30) // paused: no ticks land
	require.Equal(t, 900, h.engine.State().RemainingSeconds)

	require.NoError(t, h.engine.Toggle())
	h.run(900)

	records := h.flushed(t)
	require.Len(t, records, 1)
	require.Equal(t, 1500, records[0].ActualSeconds)
	require.Equal(t, 1500+10*60+30, int(records[0].CompletedAt.Sub(records[0].StartedAt).Seconds()))
}

func TestEngine_ElapsedEqualsRunningSegments(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, domain.DefaultSettings())
		defer func() { _ = h.engine.Close() }()
		segments := rapid.SliceOfN(rapid.IntRange(1, 200), 1, 6).Draw(rt, "segments")
		pauses := rapid.SliceOfN(rapid.IntRange(0, 600), len(segments), len(segments)).Draw(rt, "pauses")

		total := 0
		for i, seg := range segments {
			require.NoError(rt, h.engine.Start())
			h.run(seg)
			total += seg
			h.engine.Pause()
			h.clock.Advance(time.Duration(pauses[i]) * time.Second)
		}
		h.engine.Reset()

		records := h.flushed(t)
		require.Len(rt, records, 1)
		require.Equal(rt, domain.OutcomeAbandoned, records[0].Outcome)
		require.Equal(rt, total, records[0].ActualSeconds)
		require.Equal(rt, 1500, records[0].PlannedSeconds)
		require.LessOrEqual(rt, records[0].ActualSeconds,
			int(records[0].CompletedAt.Sub(records[0].StartedAt).Seconds()))
	})
}

func TestEngine_ResetWithoutElapsedWritesNothing(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())

	h.engine.Reset()
	require.NoError(t, h.engine.Start())
	h.engine.Reset()

	require.Empty(t, h.flushed(t))
	s := h.engine.State()
	require.Equal(t, 1500, s.RemainingSeconds)
	require.False(t, s.HasActiveSession)
}

func TestEngine_SwitchModeRecordsSkipped(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())

	require.NoError(t, h.engine.Start())
	h.run(120)
	require.NoError(t, h.engine.SwitchMode(domain.ModeLongBreak))

	records := h.flushed(t)
	require.Len(t, records, 1)
	require.Equal(t, domain.OutcomeSkipped, records[0].Outcome)
	require.Equal(t, domain.ModeFocus, records[0].Mode)
	require.Equal(t, 1500, records[0].PlannedSeconds)
	require.Equal(t, 120, records[0].ActualSeconds)

	s := h.engine.State()
	require.Equal(t, domain.ModeLongBreak, s.Mode)
	require.Equal(t, 900, s.RemainingSeconds)
	require.Zero(t, s.CompletedFocusCount)

	var verr *domain.ValidationError
	require.ErrorAs(t, h.engine.SwitchMode("nap"), &verr)
}

func TestEngine_SkipDoesNotCountFocus(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())

	require.NoError(t, h.engine.Start())
	h.run(60)
	h.engine.Skip()

	s := h.engine.State()
	require.Equal(t, domain.ModeShortBreak, s.Mode)
	require.Zero(t, s.CompletedFocusCount)

	h.engine.Skip()
	require.Equal(t, domain.ModeFocus, h.engine.State().Mode)

	records := h.flushed(t)
	require.Len(t, records, 1, "skipping an unstarted break writes nothing")
	require.Equal(t, domain.OutcomeSkipped, records[0].Outcome)
	require.Equal(t, 60, records[0].ActualSeconds)
}

func TestEngine_SkipFourthFocusSelectsLongBreak(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())
	for i := 0; i < 3; i++ {
		require.NoError(t, h.engine.Start())
		h.run(1500)
		h.engine.Skip()
	}
	require.Equal(t, 3, h.engine.State().CompletedFocusCount)

	h.engine.Skip()
	require.Equal(t, domain.ModeLongBreak, h.engine.State().Mode)
	require.Equal(t, 3, h.engine.State().CompletedFocusCount)
}

func TestEngine_StartRefusedOnInvalidSettings(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.WorkMinutes = 0
	h := newHarness(t, settings)

	err := h.engine.Start()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "work_minutes", verr.Field)

	s := h.engine.State()
	require.False(t, s.Running)
	require.False(t, s.HasActiveSession)
	require.Zero(t, h.clock.Tickers())
}

func TestEngine_SettingsCapturedAtStart(t *testing.T) {
	src := &mutableSettings{s: domain.DefaultSettings()}
	fc := clock.NewFake(time.Time{})
	rec := &fakeRecorder{}
	e := New(Config{Settings: src, Recorder: rec, Clock: fc})
	t.Cleanup(func() { _ = e.Close() })
	h := &harness{engine: e, clock: fc, recorder: rec}

	require.NoError(t, e.Start())
	h.run(10)
	src.set(func(s *domain.Settings) { s.WorkMinutes = 50 })
	e.RefreshSettings()
	require.Equal(t, 1490, e.State().RemainingSeconds, "running session keeps its snapshot")

	e.Reset()
	require.Equal(t, 3000, e.State().RemainingSeconds)

	src.set(func(s *domain.Settings) { s.WorkMinutes = 30 })
	e.RefreshSettings()
	require.Equal(t, 1800, e.State().RemainingSeconds)

	records := h.flushed(t)
	require.Len(t, records, 1)
	require.Equal(t, 25, records[0].Settings.WorkMinutes)
}

func TestEngine_BreakActivity(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.DefaultBreakActivity = domain.ActivityStretching
	h := newHarness(t, settings)

	require.NoError(t, h.engine.Start())
	h.run(1500)

	// Default applies to the first break.
	require.NoError(t, h.engine.Start())
	require.Equal(t, domain.ActivityStretching, h.engine.State().BreakActivity)
	h.run(300)

	// Explicit choice applies to the second.
	require.NoError(t, h.engine.Start())
	h.run(1500)
	require.NoError(t, h.engine.SelectBreakActivity(domain.ActivityWalking))
	require.NoError(t, h.engine.Start())
	h.run(300)
	require.Equal(t, domain.ActivityNone, h.engine.State().BreakActivity)

	records := h.flushed(t)
	require.Len(t, records, 4)
	require.Equal(t, domain.ActivityNone, records[0].BreakActivity)
	require.Equal(t, domain.ActivityStretching, records[1].BreakActivity)
	require.Equal(t, domain.ActivityNone, records[2].BreakActivity)
	require.Equal(t, domain.ActivityWalking, records[3].BreakActivity)

	var verr *domain.ValidationError
	require.ErrorAs(t, h.engine.SelectBreakActivity("juggling"), &verr)
}

// shortSettings keeps sessions under the subscriber buffer so no event is
// dropped.
func shortSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.WorkMinutes = 1
	s.ShortBreakMinutes = 1
	s.LongBreakMinutes = 2
	return s
}

func TestEngine_PersistFailureKeepsState(t *testing.T) {
	h := newHarness(t, shortSettings())
	h.recorder.err = errors.New("disk full")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := h.engine.Subscribe(ctx)

	require.NoError(t, h.engine.Start())
	h.run(60)
	h.flushed(t)

	s := h.engine.State()
	require.Equal(t, domain.ModeShortBreak, s.Mode)
	require.Equal(t, 1, s.CompletedFocusCount)
	var perr *domain.PersistenceError
	require.ErrorAs(t, s.LastError, &perr)
	require.ErrorContains(t, s.LastError, "disk full")

	require.Eventually(t, func() bool {
		for {
			select {
			case ev := <-events:
				if ev.Type == pubsub.PersistFailedEvent {
					return ev.Payload.Record != nil && ev.Payload.Err != nil
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_RecordQueuedBeforeModeChange(t *testing.T) {
	h := newHarness(t, shortSettings())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := h.engine.Subscribe(ctx)

	require.NoError(t, h.engine.Start())
	h.run(60)

	var types []pubsub.EventType
	var queuedMode domain.TimerMode
	for len(events) > 0 {
		ev := <-events
		if ev.Type == pubsub.TickEvent {
			continue
		}
		types = append(types, ev.Type)
		if ev.Type == pubsub.SessionQueuedEvent {
			queuedMode = ev.Payload.State.Mode
		}
	}
	require.Equal(t, []pubsub.EventType{
		pubsub.RunStateEvent, pubsub.SessionQueuedEvent, pubsub.ModeChangedEvent,
	}, types)
	require.Equal(t, domain.ModeFocus, queuedMode)
}

func TestEngine_TickerGoroutine(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())

	require.NoError(t, h.engine.Start())
	require.Equal(t, 1, h.clock.Tickers())

	h.clock.Advance(time.Second)
	h.clock.Tick()
	require.Eventually(t, func() bool {
		return h.engine.State().RemainingSeconds == 1499
	}, time.Second, time.Millisecond)

	// Restarting keeps a single live ticker.
	h.engine.Pause()
	require.Zero(t, h.clock.Tickers())
	require.NoError(t, h.engine.Start())
	require.NoError(t, h.engine.Start())
	require.Equal(t, 1, h.clock.Tickers())
}

func TestEngine_StaleTickDiscarded(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())
	require.NoError(t, h.engine.Start())

	stale := uint64(1) // generation of the first ticker
	h.engine.Pause()
	require.NoError(t, h.engine.Start())
	require.False(t, h.engine.loop.Current(stale))

	h.engine.onTick(stale)
	require.Equal(t, 1500, h.engine.State().RemainingSeconds)
}

func TestEngine_DetachReattach(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())

	require.NoError(t, h.engine.Start())
	h.run(5)
	h.engine.Detach()
	require.False(t, h.engine.State().Running)
	require.Zero(t, h.clock.Tickers())

	h.clock.Advance(time.Minute)
	require.NoError(t, h.engine.Reattach())
	require.True(t, h.engine.State().Running)
	require.Equal(t, 1495, h.engine.State().RemainingSeconds)

	// A paused timer stays paused across a detach.
	h.engine.Pause()
	h.engine.Detach()
	require.NoError(t, h.engine.Reattach())
	require.False(t, h.engine.State().Running)
}

func TestEngine_Progress(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())
	require.NoError(t, h.engine.Start())
	h.run(375)
	require.InDelta(t, 25.0, h.engine.Progress(), 0.001)
}

func TestEngine_CloseDrainsAndRefuses(t *testing.T) {
	h := newHarness(t, domain.DefaultSettings())
	require.NoError(t, h.engine.Start())
	h.run(30)
	h.engine.Reset()

	require.NoError(t, h.engine.Close())
	require.Len(t, h.recorder.all(), 1)
	require.ErrorIs(t, h.engine.Start(), ErrClosed)
	require.ErrorIs(t, h.engine.SwitchMode(domain.ModeShortBreak), ErrClosed)
	require.NoError(t, h.engine.Close())
}

type mutableSettings struct {
	mu sync.Mutex
	s  domain.Settings
}

func (m *mutableSettings) Current() domain.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

func (m *mutableSettings) set(fn func(*domain.Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.s)
}
