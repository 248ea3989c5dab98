// Package styles contains Lip Gloss style definitions.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BBBBBB"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"} // Hints, help text
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	StatusInfoColor    = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}

	// Timer mode colors
	FocusColor      = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}
	ShortBreakColor = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"}
	LongBreakColor  = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}
	EyeCareColor    = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"}

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)

	ClockStyle = lipgloss.NewStyle().Bold(true).Padding(0, 2)

	LabelStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor)

	MutedStyle = lipgloss.NewStyle().Foreground(TextMutedColor)

	ProgressFilledStyle = lipgloss.NewStyle().Foreground(TextPrimaryColor)
	ProgressEmptyStyle  = lipgloss.NewStyle().Foreground(BorderDefaultColor)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	// Error display
	ErrorStyle = lipgloss.NewStyle().
			Foreground(StatusErrorColor).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderDefaultColor).
			Padding(1, 3)

	EyeBreakStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(EyeCareColor).
			Padding(1, 4).
			Align(lipgloss.Center)
)

// ModeColor returns the accent color for mode.
func ModeColor(mode domain.TimerMode) lipgloss.AdaptiveColor {
	switch mode {
	case domain.ModeShortBreak:
		return ShortBreakColor
	case domain.ModeLongBreak:
		return LongBreakColor
	default:
		return FocusColor
	}
}
