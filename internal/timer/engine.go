// Package timer implements the pomodoro countdown state machine.
//
// The Engine owns a single 1 Hz tick and a background writer. Every terminal
// transition (completion, skip, reset with elapsed time) builds an immutable
// session record and queues it for the writer before the in-memory mode
// changes. Storage failures are reported through State.LastError and a
// PersistFailed event; they never roll back the countdown.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zjrosen/standclock/internal/clock"
	"github.com/zjrosen/standclock/internal/log"
	"github.com/zjrosen/standclock/internal/notify"
	"github.com/zjrosen/standclock/internal/pubsub"
	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// TickInterval is the countdown resolution.
const TickInterval = time.Second

// ErrClosed is returned by operations on a closed Engine.
var ErrClosed = errors.New("timer: engine closed")

// SettingsSource supplies the current user settings.
type SettingsSource interface {
	Current() domain.Settings
}

// Recorder persists a finished session record.
type Recorder interface {
	RecordSession(ctx context.Context, record domain.SessionRecord) error
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings domain.Settings

// Current returns s.
func (s StaticSettings) Current() domain.Settings { return domain.Settings(s) }

type discardRecorder struct{}

func (discardRecorder) RecordSession(_ context.Context, rec domain.SessionRecord) error {
	log.Warn(log.CatTimer, "No recorder configured, dropping session", "guid", rec.GUID)
	return nil
}

// Config configures an Engine. Without a Recorder records are dropped.
type Config struct {
	Settings  SettingsSource
	Recorder  Recorder
	Clock     clock.Clock
	Notifier  notify.Notifier
	QueueSize int
}

type activeSession struct {
	mode      domain.TimerMode
	planned   int
	startedAt time.Time
	settings  domain.SettingsSnapshot
}

// Engine is the countdown state machine. All methods are safe for concurrent
// use.
type Engine struct {
	settings SettingsSource
	clock    clock.Clock
	notifier notify.Notifier
	loop     *clock.Loop
	writer   *recordWriter
	broker   *pubsub.Broker[Event]

	mu             sync.Mutex
	mode           domain.TimerMode
	remaining      int
	planned        int
	running        bool
	completedFocus int
	accumulated    time.Duration
	lastResume     time.Time
	active         *activeSession
	activity       domain.BreakActivity
	activityChosen bool
	wasRunning     bool
	lastErr        error
	closed         bool
}

// New returns an idle Engine in Focus mode.
func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Settings == nil {
		cfg.Settings = StaticSettings(domain.DefaultSettings())
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = discardRecorder{}
	}

	e := &Engine{
		settings: cfg.Settings,
		clock:    cfg.Clock,
		notifier: cfg.Notifier,
		loop:     clock.NewLoop(cfg.Clock, TickInterval),
		broker:   pubsub.NewBroker[Event](pubsub.WithNow(cfg.Clock.Now)),
		mode:     domain.ModeFocus,
	}
	e.writer = newRecordWriter(cfg.Recorder, cfg.QueueSize, e.onPersistFailed)
	e.planned = e.freshPlanned(e.mode)
	e.remaining = e.planned
	return e
}

// Subscribe returns a channel of engine events, closed when ctx ends or the
// engine closes.
func (e *Engine) Subscribe(ctx context.Context) <-chan pubsub.Event[Event] {
	return e.broker.Subscribe(ctx)
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Progress is the percentage of the current mode's planned duration that has
// elapsed.
func (e *Engine) Progress() float64 {
	return e.State().Progress()
}

// Toggle starts a paused timer or pauses a running one.
func (e *Engine) Toggle() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.pauseLocked(e.clock.Now())
		e.publishLocked(pubsub.RunStateEvent, nil, nil)
		return nil
	}
	return e.startLocked()
}

// Start begins or resumes the countdown. A new session captures a settings
// snapshot; invalid settings refuse the start with a *domain.ValidationError.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *Engine) startLocked() error {
	if e.closed {
		return ErrClosed
	}
	if e.running {
		return nil
	}

	now := e.clock.Now()
	if e.active == nil {
		current := e.settings.Current()
		snap := current.Snapshot()
		if err := snap.Validate(); err != nil {
			log.Warn(log.CatTimer, "Start refused", "error", err, "settings", snap.String())
			return err
		}
		e.planned = snap.DurationSeconds(e.mode)
		e.remaining = e.planned
		e.accumulated = 0
		e.active = &activeSession{
			mode:      e.mode,
			planned:   e.planned,
			startedAt: now,
			settings:  snap,
		}
		if e.mode.IsBreak() && !e.activityChosen {
			e.activity = current.DefaultBreakActivity
		}
		log.Info(log.CatTimer, "Session started", "mode", e.mode, "planned", e.planned, "settings", snap.String())
	}

	e.running = true
	e.lastResume = now
	e.loop.Start(e.onTick)
	e.publishLocked(pubsub.RunStateEvent, nil, nil)
	return nil
}

// Pause stops the countdown, keeping the session open.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.pauseLocked(e.clock.Now())
	e.publishLocked(pubsub.RunStateEvent, nil, nil)
}

func (e *Engine) pauseLocked(now time.Time) {
	e.loop.Stop()
	if !e.running {
		return
	}
	e.accumulated += now.Sub(e.lastResume)
	e.running = false
}

// Reset abandons the current session and reloads the mode's full duration.
// A record is written only if the session accumulated time.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	now := e.clock.Now()
	e.pauseLocked(now)
	if e.hasUnsavedLocked() {
		e.queueLocked(domain.OutcomeAbandoned, now)
	}
	e.endSessionLocked()
	e.planned = e.freshPlanned(e.mode)
	e.remaining = e.planned
	e.notifier.Alert(notify.KindAction)
	e.publishLocked(pubsub.RunStateEvent, nil, nil)
}

// SwitchMode jumps to mode. Unsaved elapsed time in the current session is
// recorded as skipped. The completed focus count is unchanged.
func (e *Engine) SwitchMode(mode domain.TimerMode) error {
	if !mode.IsValid() {
		return &domain.ValidationError{Field: "mode", Value: mode}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	now := e.clock.Now()
	e.pauseLocked(now)
	if e.hasUnsavedLocked() {
		e.queueLocked(domain.OutcomeSkipped, now)
	}
	e.enterModeLocked(mode)
	return nil
}

// Skip moves to the mode that would follow natural completion. Leaving Focus
// picks the break for the slot the skipped session occupied without counting
// it as completed.
func (e *Engine) Skip() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	now := e.clock.Now()
	e.pauseLocked(now)

	next := domain.ModeFocus
	if e.mode == domain.ModeFocus {
		snap := e.settings.Current().Snapshot()
		if e.active != nil {
			snap = e.active.settings
		}
		next = snap.NextModeAfterFocus(e.completedFocus + 1)
	}

	if e.hasUnsavedLocked() {
		e.queueLocked(domain.OutcomeSkipped, now)
	}
	e.notifier.Alert(notify.KindAction)
	e.enterModeLocked(next)
}

// SelectBreakActivity labels the current or next break.
func (e *Engine) SelectBreakActivity(activity domain.BreakActivity) error {
	if !activity.IsValid() {
		return &domain.ValidationError{Field: "break_activity", Value: activity}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.activity = activity
	e.activityChosen = true
	e.publishLocked(pubsub.UpdatedEvent, nil, nil)
	return nil
}

// RefreshSettings reloads the displayed duration after a settings change.
// A session that already started keeps its snapshot.
func (e *Engine) RefreshSettings() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.active != nil {
		return
	}
	planned := e.freshPlanned(e.mode)
	if planned == e.planned && planned == e.remaining {
		return
	}
	e.planned = planned
	e.remaining = planned
	e.publishLocked(pubsub.UpdatedEvent, nil, nil)
}

// Detach pauses the countdown when the host loses focus and remembers
// whether it was running.
func (e *Engine) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.wasRunning = e.running
	if e.running {
		e.pauseLocked(e.clock.Now())
		e.publishLocked(pubsub.RunStateEvent, nil, nil)
	}
}

// Reattach resumes the countdown if Detach paused a running timer.
func (e *Engine) Reattach() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.wasRunning {
		return nil
	}
	e.wasRunning = false
	return e.startLocked()
}

// Flush waits until every queued record has been written or failed.
func (e *Engine) Flush(ctx context.Context) error {
	return e.writer.Flush(ctx)
}

// Close stops the tick, drains queued records and closes subscriptions.
// An open session is not recorded.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.pauseLocked(e.clock.Now())
	e.mu.Unlock()

	e.writer.Close()
	if n := e.broker.Dropped(nil); n > 0 {
		log.Debug(log.CatTimer, "Timer events dropped by slow subscribers", "count", n)
	}
	e.broker.Close()
	return nil
}

func (e *Engine) onTick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || !e.loop.Current(gen) {
		return
	}
	e.tickLocked()
}

func (e *Engine) tickLocked() {
	e.remaining--
	if e.remaining > 0 {
		e.publishLocked(pubsub.TickEvent, nil, nil)
		return
	}
	e.remaining = 0
	e.completeLocked()
}

func (e *Engine) completeLocked() {
	now := e.clock.Now()
	e.pauseLocked(now)
	e.queueLocked(domain.OutcomeCompleted, now)

	next := domain.ModeFocus
	if e.mode == domain.ModeFocus {
		e.completedFocus++
		snap := e.settings.Current().Snapshot()
		if e.active != nil {
			snap = e.active.settings
		}
		next = snap.NextModeAfterFocus(e.completedFocus)
	}
	log.Info(log.CatTimer, "Session completed", "mode", e.mode, "next", next, "completed_focus", e.completedFocus)
	e.notifier.Alert(notify.KindSessionComplete)
	e.enterModeLocked(next)
}

func (e *Engine) enterModeLocked(mode domain.TimerMode) {
	e.endSessionLocked()
	e.mode = mode
	e.planned = e.freshPlanned(mode)
	e.remaining = e.planned
	e.publishLocked(pubsub.ModeChangedEvent, nil, nil)
}

func (e *Engine) endSessionLocked() {
	if e.active != nil && e.active.mode.IsBreak() {
		e.activity = domain.ActivityNone
		e.activityChosen = false
	}
	e.active = nil
	e.accumulated = 0
}

func (e *Engine) hasUnsavedLocked() bool {
	return e.active != nil && e.elapsedLocked(e.clock.Now()) > 0
}

func (e *Engine) elapsedLocked(now time.Time) time.Duration {
	d := e.accumulated
	if e.running {
		d += now.Sub(e.lastResume)
	}
	return d
}

// actualSecondsLocked is the whole seconds the session ran, never more than
// the wall-clock span since it started.
func (e *Engine) actualSecondsLocked(now time.Time) int {
	elapsed := e.elapsedLocked(now)
	if span := now.Sub(e.active.startedAt); elapsed > span {
		elapsed = span
	}
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Second)
}

// queueLocked hands the terminal record of the active session to the writer.
func (e *Engine) queueLocked(outcome domain.Outcome, now time.Time) {
	a := e.active
	if a == nil {
		return
	}

	activity := domain.ActivityNone
	if a.mode.IsBreak() {
		activity = e.activity
	}
	rec := domain.NewSessionRecord(a.mode, outcome, a.planned, e.actualSecondsLocked(now),
		a.startedAt, now, activity, a.settings)

	if err := e.writer.Enqueue(rec); err != nil {
		e.lastErr = &domain.PersistenceError{Op: "queue session", Err: err}
		log.ErrorErr(log.CatTimer, "Session not queued", err, "guid", rec.GUID)
		e.publishLocked(pubsub.PersistFailedEvent, &rec, e.lastErr)
		return
	}
	log.Debug(log.CatTimer, "Session queued", "guid", rec.GUID, "mode", rec.Mode, "outcome", rec.Outcome)
	e.publishLocked(pubsub.SessionQueuedEvent, &rec, nil)
}

func (e *Engine) onPersistFailed(rec domain.SessionRecord, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastErr = err
	e.publishLocked(pubsub.PersistFailedEvent, &rec, err)
}

func (e *Engine) freshPlanned(mode domain.TimerMode) int {
	return max(e.settings.Current().Snapshot().DurationSeconds(mode), 0)
}

func (e *Engine) publishLocked(t pubsub.EventType, rec *domain.SessionRecord, err error) {
	e.broker.Publish(t, Event{State: e.stateLocked(), Record: rec, Err: err})
}

func (e *Engine) stateLocked() State {
	s := State{
		Mode:                e.mode,
		RemainingSeconds:    e.remaining,
		PlannedSeconds:      e.planned,
		Running:             e.running,
		CompletedFocusCount: e.completedFocus,
		AccumulatedElapsed:  e.accumulated,
		LastResume:          e.lastResume,
		HasActiveSession:    e.active != nil,
		BreakActivity:       e.activity,
		LastError:           e.lastErr,
	}
	if e.active != nil {
		s.SessionStartedAt = e.active.startedAt
	}
	return s
}
