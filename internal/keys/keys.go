// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the timer host.
type KeyMap struct {
	// Timer
	Toggle     key.Binding
	Reset      key.Binding
	Skip       key.Binding
	Focus      key.Binding
	ShortBreak key.Binding
	LongBreak  key.Binding
	Activity   key.Binding

	// Eye care
	Snooze  key.Binding
	Dismiss key.Binding

	// General
	Sound key.Binding
	Logs  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Timer
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "start/pause"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Skip: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "skip to next"),
		),
		Focus: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "focus"),
		),
		ShortBreak: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "short break"),
		),
		LongBreak: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "long break"),
		),
		Activity: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "choose break activity"),
		),

		// Eye care
		Snooze: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "snooze eye break"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc", "x"),
			key.WithHelp("esc", "dismiss eye break"),
		),

		// General
		Sound: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle sound"),
		),
		Logs: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "toggle debug log"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Reset, k.Skip, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Reset, k.Skip},                      // Timer
		{k.Focus, k.ShortBreak, k.LongBreak, k.Activity}, // Modes
		{k.Snooze, k.Dismiss},                            // Eye care
		{k.Sound, k.Logs, k.Help, k.Quit},                // General
	}
}
