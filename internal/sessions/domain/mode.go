// Package domain holds the pure types of the timer: modes, settings
// snapshots, the append-only session log and the aggregates derived from it.
//
// Nothing here touches storage, clocks or goroutines. The repository
// interfaces at the bottom of the package are what the SQLite gateway
// implements.
package domain

// TimerMode is the interval kind the timer is counting down.
// The string values are the ones stored in the session log.
type TimerMode string

const (
	ModeFocus      TimerMode = "pomodoro"
	ModeShortBreak TimerMode = "shortBreak"
	ModeLongBreak  TimerMode = "longBreak"
)

// String returns the stored representation of the mode.
func (m TimerMode) String() string {
	return string(m)
}

// IsValid reports whether m is one of the three known modes.
func (m TimerMode) IsValid() bool {
	switch m {
	case ModeFocus, ModeShortBreak, ModeLongBreak:
		return true
	default:
		return false
	}
}

// IsBreak reports whether m is a short or long break.
func (m TimerMode) IsBreak() bool {
	return m == ModeShortBreak || m == ModeLongBreak
}

// Label is a human readable name.
func (m TimerMode) Label() string {
	switch m {
	case ModeFocus:
		return "Focus"
	case ModeShortBreak:
		return "Short break"
	case ModeLongBreak:
		return "Long break"
	default:
		return string(m)
	}
}

// Outcome is how a session ended.
type Outcome string

const (
	// OutcomeCompleted means the countdown reached zero.
	OutcomeCompleted Outcome = "completed"

	// OutcomeSkipped means the user moved on to another mode early.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeAbandoned means the user reset the timer mid-session.
	OutcomeAbandoned Outcome = "abandoned"
)

func (o Outcome) String() string {
	return string(o)
}

// IsValid reports whether o is a known outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeCompleted, OutcomeSkipped, OutcomeAbandoned:
		return true
	default:
		return false
	}
}

// BreakActivity labels what the user did during a break.
type BreakActivity string

const (
	ActivityNone       BreakActivity = ""
	ActivityStanding   BreakActivity = "standing"
	ActivityWalking    BreakActivity = "walking"
	ActivityStretching BreakActivity = "stretching"
	ActivityHydration  BreakActivity = "hydration"
	ActivityEyeRest    BreakActivity = "eye-rest"
	ActivityOther      BreakActivity = "other"
)

// BreakActivities lists the selectable activities in display order.
var BreakActivities = []BreakActivity{
	ActivityStanding,
	ActivityWalking,
	ActivityStretching,
	ActivityHydration,
	ActivityEyeRest,
	ActivityOther,
}

// IsValid reports whether a is empty or one of BreakActivities.
func (a BreakActivity) IsValid() bool {
	if a == ActivityNone {
		return true
	}
	for _, known := range BreakActivities {
		if a == known {
			return true
		}
	}
	return false
}

// ParseBreakActivity converts user input to a BreakActivity.
func ParseBreakActivity(s string) (BreakActivity, error) {
	a := BreakActivity(s)
	if !a.IsValid() {
		return ActivityNone, &ValidationError{Field: "break_activity", Value: s}
	}
	return a, nil
}
