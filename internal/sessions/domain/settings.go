package domain

import "fmt"

// Default timer settings.
const (
	DefaultWorkMinutes             = 25
	DefaultShortBreakMinutes       = 5
	DefaultLongBreakMinutes        = 15
	DefaultSessionsBeforeLongBreak = 4

	DefaultEyeCareIntervalMinutes = 20
	DefaultEyeCareBreakSeconds    = 20
)

// SettingsSnapshot is the timer configuration captured when a session starts.
// Later settings changes never affect a session that already started.
type SettingsSnapshot struct {
	WorkMinutes             int
	ShortBreakMinutes       int
	LongBreakMinutes        int
	SessionsBeforeLongBreak int
}

// DefaultSnapshot returns 25/5/15 with a long break every 4th focus session.
func DefaultSnapshot() SettingsSnapshot {
	return SettingsSnapshot{
		WorkMinutes:             DefaultWorkMinutes,
		ShortBreakMinutes:       DefaultShortBreakMinutes,
		LongBreakMinutes:        DefaultLongBreakMinutes,
		SessionsBeforeLongBreak: DefaultSessionsBeforeLongBreak,
	}
}

// Validate returns a *ValidationError for the first non-positive field.
func (s SettingsSnapshot) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"work_minutes", s.WorkMinutes},
		{"short_break_minutes", s.ShortBreakMinutes},
		{"long_break_minutes", s.LongBreakMinutes},
		{"sessions_before_long_break", s.SessionsBeforeLongBreak},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return &ValidationError{Field: f.name, Value: f.value}
		}
	}
	return nil
}

// DurationSeconds is the planned length of mode under these settings.
func (s SettingsSnapshot) DurationSeconds(mode TimerMode) int {
	switch mode {
	case ModeShortBreak:
		return s.ShortBreakMinutes * 60
	case ModeLongBreak:
		return s.LongBreakMinutes * 60
	default:
		return s.WorkMinutes * 60
	}
}

// NextModeAfterFocus picks the break that follows a naturally completed focus
// session, given the focus count after incrementing.
func (s SettingsSnapshot) NextModeAfterFocus(completedFocusCount int) TimerMode {
	if s.SessionsBeforeLongBreak > 0 && completedFocusCount%s.SessionsBeforeLongBreak == 0 {
		return ModeLongBreak
	}
	return ModeShortBreak
}

func (s SettingsSnapshot) String() string {
	return fmt.Sprintf("%d/%d/%d x%d", s.WorkMinutes, s.ShortBreakMinutes, s.LongBreakMinutes, s.SessionsBeforeLongBreak)
}

// Settings is the full persisted user settings record.
type Settings struct {
	WorkMinutes             int
	ShortBreakMinutes       int
	LongBreakMinutes        int
	SessionsBeforeLongBreak int
	DefaultBreakActivity    BreakActivity

	EyeCareEnabled         bool
	EyeCareIntervalMinutes int
	EyeCareBreakSeconds    int
}

// DefaultSettings returns the settings used before the user saves any.
func DefaultSettings() Settings {
	snap := DefaultSnapshot()
	return Settings{
		WorkMinutes:             snap.WorkMinutes,
		ShortBreakMinutes:       snap.ShortBreakMinutes,
		LongBreakMinutes:        snap.LongBreakMinutes,
		SessionsBeforeLongBreak: snap.SessionsBeforeLongBreak,
		EyeCareEnabled:          true,
		EyeCareIntervalMinutes:  DefaultEyeCareIntervalMinutes,
		EyeCareBreakSeconds:     DefaultEyeCareBreakSeconds,
	}
}

// Snapshot projects the timer part of the settings.
func (s Settings) Snapshot() SettingsSnapshot {
	return SettingsSnapshot{
		WorkMinutes:             s.WorkMinutes,
		ShortBreakMinutes:       s.ShortBreakMinutes,
		LongBreakMinutes:        s.LongBreakMinutes,
		SessionsBeforeLongBreak: s.SessionsBeforeLongBreak,
	}
}

// Validate checks the timer snapshot, the default activity and, when eye care
// is enabled, its interval and break length.
func (s Settings) Validate() error {
	if err := s.Snapshot().Validate(); err != nil {
		return err
	}
	if !s.DefaultBreakActivity.IsValid() {
		return &ValidationError{Field: "default_break_activity", Value: s.DefaultBreakActivity}
	}
	if s.EyeCareEnabled {
		if s.EyeCareIntervalMinutes <= 0 {
			return &ValidationError{Field: "eye_care_interval_minutes", Value: s.EyeCareIntervalMinutes}
		}
		if s.EyeCareBreakSeconds <= 0 {
			return &ValidationError{Field: "eye_care_break_seconds", Value: s.EyeCareBreakSeconds}
		}
	}
	return nil
}
