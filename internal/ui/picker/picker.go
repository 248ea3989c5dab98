// Package picker provides a generic option picker component.
package picker

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/standclock/internal/ui/overlay"
	"github.com/zjrosen/standclock/internal/ui/styles"
)

const defaultBoxWidth = 28

// Option represents a picker option with label and value.
type Option struct {
	Label string
	Value string
	Hint  string                 // Optional muted text after the label
	Color lipgloss.TerminalColor // Optional color for the label
}

// SelectMsg is sent when the user confirms an option.
type SelectMsg struct {
	Option Option
}

// CancelMsg is sent when the picker is cancelled.
type CancelMsg struct{}

// Model holds the picker state.
type Model struct {
	title          string
	options        []Option
	selected       int
	boxWidth       int
	viewportWidth  int
	viewportHeight int
}

// New creates a new picker with the given title and options.
func New(title string, options []Option) Model {
	return Model{
		title:   title,
		options: options,
	}
}

// SetSize sets the viewport dimensions for overlay rendering.
func (m Model) SetSize(width, height int) Model {
	m.viewportWidth = width
	m.viewportHeight = height
	return m
}

// SetBoxWidth sets the width of the picker box itself.
func (m Model) SetBoxWidth(width int) Model {
	m.boxWidth = width
	return m
}

// SetSelected moves the cursor; out of range indexes are ignored.
func (m Model) SetSelected(index int) Model {
	if index >= 0 && index < len(m.options) {
		m.selected = index
	}
	return m
}

// Selected returns the option under the cursor.
func (m Model) Selected() Option {
	if m.selected >= 0 && m.selected < len(m.options) {
		return m.options[m.selected]
	}
	return Option{}
}

// Update moves the cursor, and confirms or cancels.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "j", "down", "ctrl+n":
		if m.selected < len(m.options)-1 {
			m.selected++
		}
	case "k", "up", "ctrl+p":
		if m.selected > 0 {
			m.selected--
		}
	case "enter", " ":
		if len(m.options) == 0 {
			return m, nil
		}
		selected := m.Selected()
		return m, func() tea.Msg { return SelectMsg{Option: selected} }
	case "esc", "q":
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, nil
}

// View renders the picker box (without positioning).
func (m Model) View() string {
	width := m.boxWidth
	if width == 0 {
		width = defaultBoxWidth
	}

	lines := make([]string, len(m.options))
	for i, opt := range m.options {
		label := lipgloss.NewStyle()
		if opt.Color != nil {
			label = label.Foreground(opt.Color)
		}
		prefix := " "
		if i == m.selected {
			label = label.Bold(true)
			prefix = ">"
		}
		line := prefix + label.Render(opt.Label)
		if opt.Hint != "" {
			line += " " + styles.MutedStyle.Render(opt.Hint)
		}
		lines[i] = line
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(styles.TextPrimaryColor).PaddingLeft(1).Render(m.title)
	divider := lipgloss.NewStyle().Foreground(styles.BorderDefaultColor).Render(strings.Repeat("─", width))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.BorderDefaultColor).
		Width(width).
		Render(title + "\n" + divider + "\n" + strings.Join(lines, "\n"))
}

// Overlay renders the picker centered on top of background.
func (m Model) Overlay(background string) string {
	box := m.View()
	if background == "" {
		return lipgloss.Place(m.viewportWidth, m.viewportHeight, lipgloss.Center, lipgloss.Center, box)
	}
	return overlay.Place(overlay.Config{
		Width:    m.viewportWidth,
		Height:   m.viewportHeight,
		Position: overlay.Center,
	}, box, background)
}

// FindIndexByValue returns the index of the option with the given value, or
// 0 when none matches.
func FindIndexByValue(options []Option, value string) int {
	for i, opt := range options {
		if opt.Value == value {
			return i
		}
	}
	return 0
}
