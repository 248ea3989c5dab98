// Package app contains the root application model.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/standclock/internal/clock"
	"github.com/zjrosen/standclock/internal/config"
	"github.com/zjrosen/standclock/internal/eyecare"
	"github.com/zjrosen/standclock/internal/keys"
	"github.com/zjrosen/standclock/internal/log"
	"github.com/zjrosen/standclock/internal/notify"
	"github.com/zjrosen/standclock/internal/pubsub"
	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/settings"
	"github.com/zjrosen/standclock/internal/stats"
	"github.com/zjrosen/standclock/internal/timer"
	"github.com/zjrosen/standclock/internal/ui/picker"
	"github.com/zjrosen/standclock/internal/ui/styles"
	"github.com/zjrosen/standclock/internal/ui/toaster"
	"github.com/zjrosen/standclock/internal/watcher"
)

// Services are the engines the host drives. The caller owns them and closes
// them after the program exits.
type Services struct {
	Timer    *timer.Engine
	EyeCare  *eyecare.Scheduler
	Stats    *stats.Engine
	Settings *settings.Provider
	Bell     *notify.Bell
	Clock    clock.Clock

	// ConfigPath receives the sound toggle. Empty disables saving.
	ConfigPath string
	// DBPath is watched for writes by other processes. Empty disables
	// watching.
	DBPath string
}

// Options tune host behavior.
type Options struct {
	// PauseOnBlur detaches the timer while the terminal is unfocused. The
	// program must be started with tea.WithReportFocus.
	PauseOnBlur bool
	// Debug enables the log tail (ctrl+x).
	Debug bool
}

// logTailSize is the number of log lines kept for the debug tail.
const logTailSize = 6

// Model is the root application state.
type Model struct {
	services Services
	keys     keys.KeyMap
	toaster  toaster.Model

	timer    timer.State
	eye      eyecare.State
	today    domain.DailyStats
	streak   domain.StreakInfo
	settings domain.Settings

	// Last values forwarded to the eye-care scheduler.
	fwdMode    domain.TimerMode
	fwdRunning bool

	width       int
	height      int
	showHelp    bool
	pauseOnBlur bool

	picker     picker.Model
	showPicker bool

	debugMode   bool
	showLogs    bool
	logTail     []string
	logListener *log.LogListener

	ctx              context.Context
	cancel           context.CancelFunc
	timerListener    *pubsub.ContinuousListener[timer.Event]
	eyeListener      *pubsub.ContinuousListener[eyecare.State]
	statsListener    *pubsub.ContinuousListener[domain.DailyStats]
	settingsListener *pubsub.ContinuousListener[domain.Settings]

	watcherHandle *watcher.Watcher
	dbChanged     <-chan struct{}
}

// dbChangedMsg reports a write to the database by another process.
type dbChangedMsg struct{}

// statsLoadedMsg carries today's aggregate and the streak.
type statsLoadedMsg struct {
	today  domain.DailyStats
	streak domain.StreakInfo
}

// New creates the host model and subscribes to every engine.
func New(services Services, opts Options) Model {
	if services.Clock == nil {
		services.Clock = clock.Real{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		services:         services,
		keys:             keys.DefaultKeyMap(),
		toaster:          toaster.New(),
		timer:            services.Timer.State(),
		eye:              services.EyeCare.State(),
		settings:         services.Settings.Current(),
		pauseOnBlur:      opts.PauseOnBlur,
		debugMode:        opts.Debug,
		ctx:              ctx,
		cancel:           cancel,
		timerListener:    pubsub.NewContinuousListener[timer.Event](ctx, services.Timer),
		eyeListener:      pubsub.NewContinuousListener[eyecare.State](ctx, services.EyeCare),
		statsListener:    pubsub.NewContinuousListener[domain.DailyStats](ctx, services.Stats),
		settingsListener: pubsub.NewContinuousListener[domain.Settings](ctx, services.Settings),
	}
	m.today = domain.EmptyDailyStats(m.todayKey())
	m.forward()
	if opts.Debug {
		m.logListener = log.NewListener(ctx)
		m.logTail = log.Recent(logTailSize)
	} else {
		m.keys.Logs.SetEnabled(false)
	}

	if services.DBPath != "" {
		w, err := watcher.New(watcher.DefaultConfig(services.DBPath))
		if err == nil {
			ch, err := w.Start()
			if err == nil {
				m.watcherHandle = w
				m.dbChanged = ch
			} else {
				log.Warn(log.CatWatcher, "Database watch unavailable", "error", err)
				_ = w.Stop()
			}
		}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.timerListener.Listen(),
		m.eyeListener.Listen(),
		m.statsListener.Listen(),
		m.settingsListener.Listen(),
		m.loadStats(),
	}
	if m.dbChanged != nil {
		cmds = append(cmds, m.waitForDBChange())
	}
	if m.logListener != nil {
		cmds = append(cmds, m.logListener.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.picker = m.picker.SetSize(msg.Width, msg.Height)
		return m, nil

	case picker.SelectMsg:
		m.showPicker = false
		return m.report(m.services.Timer.SelectBreakActivity(domain.BreakActivity(msg.Option.Value)))

	case picker.CancelMsg:
		m.showPicker = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.BlurMsg:
		if m.pauseOnBlur {
			log.Debug(log.CatApp, "Terminal blurred, detaching timer")
			m.services.Timer.Detach()
			m.timer = m.services.Timer.State()
			m.forward()
		}
		return m, nil

	case tea.FocusMsg:
		if m.pauseOnBlur {
			return m.reattach()
		}
		return m, nil

	case tea.ResumeMsg:
		return m.reattach()

	case pubsub.Event[timer.Event]:
		m.timer = msg.Payload.State
		m.forward()

		var cmd tea.Cmd
		if msg.Type == pubsub.PersistFailedEvent {
			m.toaster, cmd = m.toaster.Show(fmt.Sprintf("Session not saved: %v", msg.Payload.Err), toaster.StyleError)
		}
		return m, tea.Batch(cmd, m.timerListener.Listen())

	case pubsub.Event[eyecare.State]:
		m.eye = msg.Payload
		return m, m.eyeListener.Listen()

	case pubsub.Event[domain.DailyStats]:
		if msg.Payload.Date == m.todayKey() {
			m.today = msg.Payload
		}
		// A completed focus session may have stepped the streak.
		return m, tea.Batch(m.loadStats(), m.statsListener.Listen())

	case pubsub.Event[domain.Settings]:
		m.settings = msg.Payload
		m.applySettings(msg.Payload)
		return m, m.settingsListener.Listen()

	case statsLoadedMsg:
		m.today = msg.today
		m.streak = msg.streak
		return m, nil

	case dbChangedMsg:
		log.Debug(log.CatApp, "Database changed, reloading")
		if err := m.services.Settings.Reload(m.ctx); err != nil {
			log.ErrorErr(log.CatApp, "Failed to reload settings", err)
		}
		m.services.Stats.Invalidate(m.ctx, m.todayKey())
		return m, tea.Batch(m.loadStats(), m.waitForDBChange())

	case log.LogEvent:
		m.logTail = append(m.logTail, msg.Payload)
		if len(m.logTail) > logTailSize {
			m.logTail = m.logTail[len(m.logTail)-logTailSize:]
		}
		if m.logListener == nil {
			return m, nil
		}
		return m, m.logListener.Listen()

	case toaster.DismissMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	svc := m.services

	switch {
	// The picker owns the keyboard while open; ctrl+c still quits.
	case m.showPicker && msg.Type != tea.KeyCtrlC:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case msg.Type == tea.KeyCtrlZ:
		svc.Timer.Detach()
		m.timer = svc.Timer.State()
		m.forward()
		return m, tea.Suspend

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		m.showLogs = !m.showLogs
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		return m.report(svc.Timer.Toggle())

	case key.Matches(msg, m.keys.Reset):
		svc.Timer.Reset()

	case key.Matches(msg, m.keys.Skip):
		svc.Timer.Skip()

	case key.Matches(msg, m.keys.Focus):
		return m.report(svc.Timer.SwitchMode(domain.ModeFocus))

	case key.Matches(msg, m.keys.ShortBreak):
		return m.report(svc.Timer.SwitchMode(domain.ModeShortBreak))

	case key.Matches(msg, m.keys.LongBreak):
		return m.report(svc.Timer.SwitchMode(domain.ModeLongBreak))

	case key.Matches(msg, m.keys.Activity):
		m.picker = activityPicker(m.timer.BreakActivity).SetSize(m.width, m.height)
		m.showPicker = true
		return m, nil

	case key.Matches(msg, m.keys.Snooze):
		err := svc.EyeCare.Snooze()
		if errors.Is(err, eyecare.ErrNoBreak) {
			return m, nil
		}
		return m.report(err)

	case key.Matches(msg, m.keys.Dismiss):
		if err := svc.EyeCare.DismissBreak(); err != nil && !errors.Is(err, eyecare.ErrNoBreak) {
			return m.report(err)
		}

	case key.Matches(msg, m.keys.Sound):
		return m.toggleSound()
	}

	m.timer = svc.Timer.State()
	m.forward()
	return m, nil
}

// report refreshes the timer state and shows err, if any, as a toast.
func (m Model) report(err error) (tea.Model, tea.Cmd) {
	m.timer = m.services.Timer.State()
	m.forward()
	if err == nil {
		return m, nil
	}

	var (
		verr *domain.ValidationError
		text string
		cmd  tea.Cmd
	)
	switch {
	case errors.As(err, &verr):
		text = fmt.Sprintf("Invalid %s: %v", verr.Field, verr.Value)
	case errors.Is(err, eyecare.ErrSnoozeLimit):
		text = "No snoozes left"
	default:
		text = err.Error()
	}
	m.toaster, cmd = m.toaster.Show(text, toaster.StyleWarn)
	return m, cmd
}

func (m Model) reattach() (tea.Model, tea.Cmd) {
	return m.report(m.services.Timer.Reattach())
}

func (m Model) toggleSound() (tea.Model, tea.Cmd) {
	bell := m.services.Bell
	if bell == nil {
		return m, nil
	}
	on := !bell.Enabled()
	bell.SetEnabled(on)

	text, style := "Sound off", toaster.StyleInfo
	if on {
		text = "Sound on"
	}
	if path := m.services.ConfigPath; path != "" {
		if err := config.SaveSoundEnabled(path, on); err != nil {
			log.ErrorErr(log.CatConfig, "Failed to save sound setting", err, "path", path)
			text, style = text+" (not saved)", toaster.StyleWarn
		}
	}

	var cmd tea.Cmd
	m.toaster, cmd = m.toaster.Show(text, style)
	return m, cmd
}

// forward passes timer mode and run-state changes on to the eye-care
// scheduler. It compares against the last forwarded values because the
// broker may drop events for a slow subscriber.
func (m *Model) forward() {
	eye := m.services.EyeCare
	if m.timer.Mode != m.fwdMode {
		m.fwdMode = m.timer.Mode
		eye.OnPomodoroModeChange(m.timer.Mode)
	}
	if m.timer.Running != m.fwdRunning {
		m.fwdRunning = m.timer.Running
		if m.timer.Running {
			eye.OnPomodoroStart()
		} else {
			eye.OnPomodoroPause()
		}
	}
	m.eye = eye.State()
}

// applySettings pushes changed settings into the engines.
func (m Model) applySettings(s domain.Settings) {
	m.services.Timer.RefreshSettings()

	eye := m.services.EyeCare
	eye.SetEnabled(s.EyeCareEnabled)
	if !s.EyeCareEnabled {
		return
	}
	if err := eye.SetInterval(time.Duration(s.EyeCareIntervalMinutes) * time.Minute); err != nil {
		log.Warn(log.CatEyeCare, "Ignoring eye-care interval", "error", err)
	}
	if err := eye.SetBreakDuration(time.Duration(s.EyeCareBreakSeconds) * time.Second); err != nil {
		log.Warn(log.CatEyeCare, "Ignoring eye-care break length", "error", err)
	}
}

func (m Model) todayKey() string {
	return domain.DateKeyOf(m.services.Clock.Now())
}

func (m Model) loadStats() tea.Cmd {
	st, ctx, date := m.services.Stats, m.ctx, m.todayKey()
	return func() tea.Msg {
		return statsLoadedMsg{
			today:  st.DailyStats(ctx, date),
			streak: st.Streak(ctx),
		}
	}
}

func (m Model) waitForDBChange() tea.Cmd {
	ch, ctx := m.dbChanged, m.ctx
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			return dbChangedMsg{}
		}
	}
}

// activityHints notes which activities count toward standing or exercise
// time.
var activityHints = map[domain.BreakActivity]string{
	domain.ActivityStanding:   "standing",
	domain.ActivityWalking:    "standing",
	domain.ActivityStretching: "exercise",
}

// activityPicker lists "none" and every break activity with current
// preselected.
func activityPicker(current domain.BreakActivity) picker.Model {
	options := make([]picker.Option, 0, len(domain.BreakActivities)+1)
	options = append(options, picker.Option{Label: "none", Value: string(domain.ActivityNone), Color: styles.TextMutedColor})
	for _, a := range domain.BreakActivities {
		options = append(options, picker.Option{Label: string(a), Value: string(a), Hint: activityHints[a]})
	}
	return picker.New("Break activity", options).
		SetSelected(picker.FindIndexByValue(options, string(current)))
}

// Close releases resources held by the application. The engines in
// Services are left to the caller.
func (m *Model) Close() error {
	m.cancel()
	if m.watcherHandle != nil {
		return m.watcherHandle.Stop()
	}
	return nil
}
