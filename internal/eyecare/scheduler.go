// Package eyecare runs the 20-20-20 style reminder that counts focus time and
// interrupts it with short eye breaks.
//
// The scheduler follows the pomodoro timer through three host callbacks
// (OnPomodoroModeChange, OnPomodoroStart, OnPomodoroPause) and never imports
// the timer package. It counts down only while the timer is running a focus
// session; break and snooze countdowns run on their own.
package eyecare

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

var (
	// ErrSnoozeLimit is returned by Snooze once MaxSnoozes have been used
	// since the last completed break.
	ErrSnoozeLimit = errors.New("eyecare: snooze limit reached")

	// ErrNoBreak is returned by DismissBreak and Snooze when no break is due.
	ErrNoBreak = errors.New("eyecare: no break in progress")
)

// Phase is the scheduler's coarse state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseCounting Phase = "counting"
	PhaseBreak    Phase = "break"
	PhaseSnoozed  Phase = "snoozed"
)

// Config holds the scheduler's durations.
type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	BreakDuration  time.Duration `mapstructure:"break_duration"`
	SnoozeDuration time.Duration `mapstructure:"snooze_duration"`
	MaxSnoozes     int           `mapstructure:"max_snoozes"`
	SnapshotEvery  time.Duration `mapstructure:"snapshot_every"`
}

// DefaultConfig returns a 20 minute interval, 20 second breaks and three
// five minute snoozes.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Interval:       domain.DefaultEyeCareIntervalMinutes * time.Minute,
		BreakDuration:  domain.DefaultEyeCareBreakSeconds * time.Second,
		SnoozeDuration: 5 * time.Minute,
		MaxSnoozes:     3,
		SnapshotEvery:  5 * time.Second,
	}
}

// WithSettings overlays the user-editable fields of s onto c.
func (c Config) WithSettings(s domain.Settings) Config {
	c.Enabled = s.EyeCareEnabled
	if s.EyeCareIntervalMinutes > 0 {
		c.Interval = time.Duration(s.EyeCareIntervalMinutes) * time.Minute
	}
	if s.EyeCareBreakSeconds > 0 {
		c.BreakDuration = time.Duration(s.EyeCareBreakSeconds) * time.Second
	}
	return c
}

// Validate rejects non-positive durations.
func (c Config) Validate() error {
	switch {
	case c.Interval < time.Second:
		return &domain.ValidationError{Field: "eye_care.interval", Value: c.Interval}
	case c.BreakDuration < time.Second:
		return &domain.ValidationError{Field: "eye_care.break_duration", Value: c.BreakDuration}
	case c.SnoozeDuration < time.Second:
		return &domain.ValidationError{Field: "eye_care.snooze_duration", Value: c.SnoozeDuration}
	case c.MaxSnoozes < 0:
		return &domain.ValidationError{Field: "eye_care.max_snoozes", Value: c.MaxSnoozes}
	}
	return nil
}

// Store persists the countdown snapshot.
type Store interface {
	LoadSnapshot() (domain.EyeCareSnapshot, bool, error)
	SaveSnapshot(domain.EyeCareSnapshot) error
}

// Scheduler is the eye-care state machine. All methods are safe for
// concurrent use.
type Scheduler struct {
	clock    clock.Clock
	store    Store
	notifier notify.Notifier
	loop     *clock.Loop
	broker   *pubsub.Broker[State]

	mu          sync.Mutex
	cfg         Config
	phase       Phase
	active      bool
	mode        domain.TimerMode
	untilBreak  int
	breakLeft   int
	snoozeLeft  int
	snoozeCount int
	lastSave    time.Time
	closed      bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithStore enables snapshot persistence.
func WithStore(store Store) Option {
	return func(s *Scheduler) { s.store = store }
}

// WithNotifier sets the alert sink for break start and end.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// New returns a scheduler loaded with a full interval. It does not tick
// until the pomodoro timer reports a running focus session.
func New(cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    clock.Real{},
		notifier: notify.Nop{},
		cfg:      cfg,
		mode:     domain.ModeFocus,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.broker = pubsub.NewBroker[State](pubsub.WithNow(s.clock.Now))
	s.loop = clock.NewLoop(s.clock, time.Second)
	s.lastSave = s.clock.Now()
	s.resetLocked()
	return s
}

// Subscribe returns a channel of state changes.
func (s *Scheduler) Subscribe(ctx context.Context) <-chan pubsub.Event[State] {
	return s.broker.Subscribe(ctx)
}

// State returns a copy of the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// OnPomodoroModeChange records the timer's mode. Counting pauses during
// pomodoro breaks.
func (s *Scheduler) OnPomodoroModeChange(mode domain.TimerMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	s.reconcileLocked()
	s.publishLocked(pubsub.UpdatedEvent)
}

// OnPomodoroStart marks the scheduler active.
func (s *Scheduler) OnPomodoroStart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseIdle || s.closed {
		return
	}
	if s.untilBreak <= 0 {
		s.untilBreak = seconds(s.cfg.Interval)
	}
	s.active = true
	s.reconcileLocked()
	s.publishLocked(pubsub.UpdatedEvent)
}

// OnPomodoroPause marks the scheduler inactive and stops counting.
func (s *Scheduler) OnPomodoroPause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.reconcileLocked()
	s.publishLocked(pubsub.UpdatedEvent)
}

// DismissBreak ends the current break or snooze and reloads a full interval.
func (s *Scheduler) DismissBreak() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseBreak && s.phase != PhaseSnoozed {
		return ErrNoBreak
	}
	log.Debug(log.CatEyeCare, "Break dismissed", "snoozes", s.snoozeCount)
	s.finishBreakLocked()
	s.publishLocked(pubsub.BreakEndedEvent)
	return nil
}

// Snooze postpones the current break by SnoozeDuration.
func (s *Scheduler) Snooze() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseBreak {
		return ErrNoBreak
	}
	if s.snoozeCount >= s.cfg.MaxSnoozes {
		return ErrSnoozeLimit
	}
	s.snoozeCount++
	s.breakLeft = 0
	s.snoozeLeft = seconds(s.cfg.SnoozeDuration)
	s.enterLocked(PhaseSnoozed)
	log.Debug(log.CatEyeCare, "Break snoozed", "count", s.snoozeCount, "seconds", s.snoozeLeft)
	s.publishLocked(pubsub.UpdatedEvent)
	return nil
}

// Reset reloads a full interval and clears any break, snooze and
// activity.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.resetLocked()
	s.publishLocked(pubsub.UpdatedEvent)
}

// SetEnabled turns the feature on or off. Disabling returns to Idle.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Enabled == enabled {
		return
	}
	s.cfg.Enabled = enabled
	if !enabled {
		s.active = false
	}
	s.resetLocked()
	s.publishLocked(pubsub.UpdatedEvent)
}

// SetInterval changes the work interval. The running countdown is reloaded
// only when the scheduler is inactive and no break is in progress.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if d < time.Second {
		return &domain.ValidationError{Field: "eye_care.interval", Value: d}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Interval = d
	if !s.active && s.phase == PhaseCounting {
		s.untilBreak = seconds(d)
		s.publishLocked(pubsub.UpdatedEvent)
	}
	return nil
}

// SetBreakDuration changes the length of future breaks.
func (s *Scheduler) SetBreakDuration(d time.Duration) error {
	if d < time.Second {
		return &domain.ValidationError{Field: "eye_care.break_duration", Value: d}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.BreakDuration = d
	return nil
}

// Restore loads the saved countdown, subtracting the wall-clock time since it
// was saved. Restoring never starts counting.
func (s *Scheduler) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	snap, ok, err := s.store.LoadSnapshot()
	if err != nil {
		log.ErrorErr(log.CatEyeCare, "Failed to load eye-care snapshot", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	if !ok || !snap.Active || !s.cfg.Enabled {
		log.Debug(log.CatEyeCare, "No eye-care snapshot to restore", "found", ok)
		s.publishLocked(pubsub.UpdatedEvent)
		return nil
	}

	elapsed := int(s.clock.Now().Sub(time.UnixMilli(snap.SavedAt)) / time.Second)
	remaining := max(snap.SecondsUntilBreak-max(elapsed, 0), 0)
	if remaining > 0 {
		s.untilBreak = remaining
	}
	log.Info(log.CatEyeCare, "Restored eye-care countdown",
		"saved", snap.SecondsUntilBreak, "elapsed", elapsed, "remaining", s.untilBreak)
	s.publishLocked(pubsub.UpdatedEvent)
	return nil
}

// Close stops ticking, writes a final snapshot and closes subscriptions.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.loop.Stop()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.save(snap)
	s.broker.Close()
}

func (s *Scheduler) onTick(gen uint64) {
	s.mu.Lock()
	if !s.loop.Current(gen) {
		s.mu.Unlock()
		return
	}
	snap := s.tickLocked()
	s.mu.Unlock()

	s.save(snap)
}

// tickLocked advances whichever countdown is live and returns a snapshot
// when one is due for saving.
func (s *Scheduler) tickLocked() *domain.EyeCareSnapshot {
	switch s.phase {
	case PhaseCounting:
		s.untilBreak--
		if s.untilBreak <= 0 {
			s.untilBreak = 0
			s.startBreakLocked()
			return nil
		}
		s.publishLocked(pubsub.TickEvent)
		now := s.clock.Now()
		if now.Sub(s.lastSave) >= s.cfg.SnapshotEvery {
			s.lastSave = now
			return s.snapshotLocked()
		}

	case PhaseBreak:
		s.breakLeft--
		if s.breakLeft <= 0 {
			log.Debug(log.CatEyeCare, "Break completed")
			s.notifier.Alert(notify.KindEyeBreakOver)
			s.finishBreakLocked()
			s.publishLocked(pubsub.BreakEndedEvent)
			return nil
		}
		s.publishLocked(pubsub.TickEvent)

	case PhaseSnoozed:
		s.snoozeLeft--
		if s.snoozeLeft <= 0 {
			s.snoozeLeft = 0
			s.startBreakLocked()
			return nil
		}
		s.publishLocked(pubsub.TickEvent)
	}
	return nil
}

func (s *Scheduler) startBreakLocked() {
	s.breakLeft = seconds(s.cfg.BreakDuration)
	s.enterLocked(PhaseBreak)
	log.Info(log.CatEyeCare, "Eye break due", "seconds", s.breakLeft, "snoozes", s.snoozeCount)
	s.notifier.Alert(notify.KindEyeBreakDue)
	s.publishLocked(pubsub.BreakDueEvent)
}

// finishBreakLocked resolves a break: full interval, snoozes cleared,
// counting again if eligible.
func (s *Scheduler) finishBreakLocked() {
	s.breakLeft = 0
	s.snoozeLeft = 0
	s.snoozeCount = 0
	s.untilBreak = seconds(s.cfg.Interval)
	s.enterLocked(PhaseCounting)
}

func (s *Scheduler) resetLocked() {
	s.loop.Stop()
	s.breakLeft = 0
	s.snoozeLeft = 0
	s.snoozeCount = 0
	s.untilBreak = seconds(s.cfg.Interval)
	if s.cfg.Enabled {
		s.phase = PhaseCounting
	} else {
		s.phase = PhaseIdle
	}
}

// enterLocked switches phase and restarts the tick so the new countdown
// gets a full first second.
func (s *Scheduler) enterLocked(p Phase) {
	s.loop.Stop()
	s.phase = p
	s.reconcileLocked()
}

// reconcileLocked starts or stops the tick to match the phase.
func (s *Scheduler) reconcileLocked() {
	if s.closed {
		return
	}
	want := false
	switch s.phase {
	case PhaseCounting:
		want = s.countingLocked()
	case PhaseBreak, PhaseSnoozed:
		want = true
	}

	switch {
	case want && !s.loop.Running():
		s.loop.Start(s.onTick)
	case !want && s.loop.Running():
		s.loop.Stop()
	}
}

func (s *Scheduler) countingLocked() bool {
	return s.phase == PhaseCounting && s.active && s.mode == domain.ModeFocus
}

func (s *Scheduler) snapshotLocked() *domain.EyeCareSnapshot {
	if !s.active || s.phase == PhaseIdle {
		return nil
	}
	return &domain.EyeCareSnapshot{
		SecondsUntilBreak: s.untilBreak,
		SavedAt:           s.clock.Now().UnixMilli(),
		Active:            true,
	}
}

// save writes snap outside the scheduler lock. Failures are logged only.
func (s *Scheduler) save(snap *domain.EyeCareSnapshot) {
	if snap == nil || s.store == nil {
		return
	}
	if err := s.store.SaveSnapshot(*snap); err != nil {
		log.ErrorErr(log.CatEyeCare, "Failed to save eye-care snapshot", err)
	}
}

func (s *Scheduler) publishLocked(t pubsub.EventType) {
	s.broker.Publish(t, s.stateLocked())
}

func (s *Scheduler) stateLocked() State {
	return State{
		Enabled:           s.cfg.Enabled,
		Active:            s.active,
		Counting:          s.countingLocked(),
		Phase:             s.phase,
		SecondsUntilBreak: s.untilBreak,
		BreakSecondsLeft:  s.breakLeft,
		Snoozed:           s.phase == PhaseSnoozed,
		SnoozeSecondsLeft: s.snoozeLeft,
		SnoozeCount:       s.snoozeCount,
		SnoozesLeft:       max(s.cfg.MaxSnoozes-s.snoozeCount, 0),
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
