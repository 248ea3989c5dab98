package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/standclock/internal/eyecare"
	"github.com/zjrosen/standclock/internal/ui/overlay"
	"github.com/zjrosen/standclock/internal/ui/styles"
)

const (
	defaultWidth  = 60
	defaultHeight = 20
	progressWidth = 30
)

// View implements tea.Model.
func (m Model) View() string {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	sections := []string{
		styles.TitleStyle.Render("standclock"),
		m.timerPanel(),
		m.eyeCareLine(),
		m.todayLine(),
	}
	if err := m.timer.LastError; err != nil {
		sections = append(sections, styles.ErrorStyle.Render("Last save failed: "+err.Error()))
	}
	if m.debugMode && m.showLogs && len(m.logTail) > 0 {
		lines := make([]string, len(m.logTail))
		for i, l := range m.logTail {
			lines[i] = styles.TruncateString(l, width)
		}
		sections = append(sections, styles.MutedStyle.Render(strings.Join(lines, "\n")))
	}
	sections = append(sections, m.helpView())

	view := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.eye.BreakActive() {
		view = overlay.Place(overlay.Config{
			Width:    width,
			Height:   height,
			Position: overlay.Center,
		}, m.eyeBreakPanel(), view)
	}
	if m.showPicker {
		view = m.picker.SetSize(width, height).Overlay(view)
	}
	return m.toaster.Overlay(view, width, height)
}

func (m Model) timerPanel() string {
	t := m.timer
	accent := styles.ModeColor(t.Mode)

	header := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(t.Mode.Label())
	if every := m.settings.SessionsBeforeLongBreak; every > 0 && !t.Mode.IsBreak() {
		header += styles.LabelStyle.Render(fmt.Sprintf("  ·  session %d of %d", t.CompletedFocusCount%every+1, every))
	}

	status := "paused"
	if t.Running {
		status = "running"
	} else if !t.HasActiveSession {
		status = "ready"
	}

	lines := []string{
		header,
		styles.ClockStyle.Foreground(accent).Render(t.Clock()),
		styles.ProgressBar(t.Progress(), progressWidth),
		styles.LabelStyle.Render(status),
	}
	if t.Mode.IsBreak() {
		activity := "none"
		if t.BreakActivity != "" {
			activity = string(t.BreakActivity)
		}
		lines = append(lines, styles.LabelStyle.Render("activity: "+activity))
	}

	return styles.PanelStyle.BorderForeground(accent).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) eyeCareLine() string {
	e := m.eye
	var text string
	switch {
	case !e.Enabled:
		text = "Eyes: reminders off"
	case e.Phase == eyecare.PhaseSnoozed:
		text = fmt.Sprintf("Eyes: snoozed %s (%d left)", mmss(e.SnoozeSecondsLeft), e.SnoozesLeft)
	case e.BreakActive():
		text = fmt.Sprintf("Eyes: look away %s", mmss(e.BreakSecondsLeft))
	case e.Counting:
		text = fmt.Sprintf("Eyes: next break in %s", mmss(e.SecondsUntilBreak))
	default:
		text = fmt.Sprintf("Eyes: waiting (%s)", mmss(e.SecondsUntilBreak))
	}
	return lipgloss.NewStyle().Foreground(styles.EyeCareColor).Render(text)
}

func (m Model) todayLine() string {
	d := m.today
	days := "days"
	if m.streak.CurrentStreak == 1 {
		days = "day"
	}
	return styles.StatusBarStyle.Render(fmt.Sprintf(
		"Today: %d focus · %s · score %d · streak %d %s",
		d.WorkSessionsCompleted,
		styles.FormatDuration(d.TotalWorkTime),
		d.FocusScore,
		m.streak.CurrentStreak,
		days,
	))
}

func (m Model) eyeBreakPanel() string {
	e := m.eye
	hint := "esc dismiss"
	if e.SnoozesLeft > 0 {
		hint = fmt.Sprintf("s snooze (%d left) · esc dismiss", e.SnoozesLeft)
	}
	return styles.EyeBreakStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Bold(true).Render("Eye break"),
		"Look at something 20 feet away",
		mmss(e.BreakSecondsLeft),
		styles.MutedStyle.Render(hint),
	))
}

func (m Model) helpView() string {
	var groups [][]key.Binding
	if m.showHelp {
		groups = m.keys.FullHelp()
	} else {
		groups = [][]key.Binding{m.keys.ShortHelp()}
	}

	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		parts := make([]string, 0, len(g))
		for _, b := range g {
			if !b.Enabled() {
				continue
			}
			h := b.Help()
			parts = append(parts, h.Key+" "+h.Desc)
		}
		lines = append(lines, strings.Join(parts, " · "))
	}
	return styles.MutedStyle.Render(strings.Join(lines, "\n"))
}

func mmss(seconds int) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
