package eyecare

// State is a point-in-time copy of the scheduler.
type State struct {
	Enabled bool
	// Active is true while the pomodoro timer is running.
	Active bool
	// Counting is true while the interval countdown is advancing.
	Counting bool
	Phase    Phase

	SecondsUntilBreak int
	BreakSecondsLeft  int

	Snoozed           bool
	SnoozeSecondsLeft int
	SnoozeCount       int
	SnoozesLeft       int
}

// BreakActive reports whether the user should be looking away.
func (s State) BreakActive() bool {
	return s.Phase == PhaseBreak
}
