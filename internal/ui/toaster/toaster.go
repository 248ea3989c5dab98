// Package toaster provides a notification toast overlay component.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/standclock/internal/ui/overlay"
	"github.com/zjrosen/standclock/internal/ui/styles"
)

// DefaultDuration is how long a toast stays up.
const DefaultDuration = 3 * time.Second

// Style determines the visual appearance of the toast.
type Style int

const (
	StyleSuccess Style = iota
	StyleError
	StyleInfo
	StyleWarn
)

// Model holds the toaster state. Each Show bumps the sequence so a dismiss
// scheduled for an older toast does not hide a newer one.
type Model struct {
	message string
	style   Style
	visible bool
	seq     int
}

// New creates a new toaster model.
func New() Model {
	return Model{}
}

// Show displays message and returns the command that will dismiss it.
func (m Model) Show(message string, style Style) (Model, tea.Cmd) {
	m.message = message
	m.style = style
	m.visible = true
	m.seq++
	return m, ScheduleDismiss(m.seq, DefaultDuration)
}

// Update handles DismissMsg.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.Seq == m.seq {
		m.visible = false
		m.message = ""
	}
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool {
	return m.visible
}

// View renders the toast box.
func (m Model) View() string {
	if !m.visible || m.message == "" {
		return ""
	}

	style := lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder())

	var prefix string
	switch m.style {
	case StyleError:
		style = style.BorderForeground(styles.StatusErrorColor)
		prefix = "✗ "
	case StyleInfo:
		style = style.BorderForeground(styles.StatusInfoColor)
		prefix = "i "
	case StyleWarn:
		style = style.BorderForeground(styles.StatusWarningColor)
		prefix = "! "
	default:
		style = style.BorderForeground(styles.StatusSuccessColor)
		prefix = "✓ "
	}
	return style.Render(prefix + m.message)
}

// Overlay renders the toast near the bottom of bg.
func (m Model) Overlay(bg string, width, height int) string {
	if !m.visible || m.message == "" {
		return bg
	}
	return overlay.Place(overlay.Config{
		Width:    width,
		Height:   height,
		Position: overlay.Bottom,
		PadY:     1,
	}, m.View(), bg)
}

// DismissMsg hides the toast with sequence Seq.
type DismissMsg struct{ Seq int }

// ScheduleDismiss returns a command that dismisses toast seq after d.
func ScheduleDismiss(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return DismissMsg{Seq: seq}
	})
}
