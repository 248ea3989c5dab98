package timer

import (
	"fmt"
	"time"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// State is a point-in-time copy of the engine.
type State struct {
	Mode                domain.TimerMode
	RemainingSeconds    int
	PlannedSeconds      int
	Running             bool
	CompletedFocusCount int

	// AccumulatedElapsed covers closed running segments only; the open
	// segment started at LastResume.
	AccumulatedElapsed time.Duration
	LastResume         time.Time

	HasActiveSession bool
	SessionStartedAt time.Time
	BreakActivity    domain.BreakActivity
	LastError        error
}

// Progress is the elapsed share of the planned duration in percent.
func (s State) Progress() float64 {
	if s.PlannedSeconds <= 0 {
		return 0
	}
	return float64(s.PlannedSeconds-s.RemainingSeconds) / float64(s.PlannedSeconds) * 100
}

// Clock renders the remaining time as MM:SS.
func (s State) Clock() string {
	r := max(s.RemainingSeconds, 0)
	return fmt.Sprintf("%02d:%02d", r/60, r%60)
}

// Event is published on every state change. Record is set for
// SessionQueued and PersistFailed events.
type Event struct {
	State  State
	Record *domain.SessionRecord
	Err    error
}
