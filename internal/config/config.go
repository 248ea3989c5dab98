// Package config provides configuration types and defaults for standclock.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/standclock/internal/eyecare"
	"github.com/zjrosen/standclock/internal/flags"
	"github.com/zjrosen/standclock/internal/log"
	"github.com/zjrosen/standclock/internal/paths"
	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/tracing"
)

// Config holds all configuration options for standclock.
type Config struct {
	Storage StorageConfig   `mapstructure:"storage"`
	Timer   TimerConfig     `mapstructure:"timer"`
	EyeCare EyeCareConfig   `mapstructure:"eye_care"`
	Sound   SoundConfig     `mapstructure:"sound"`
	Tracing tracing.Config  `mapstructure:"tracing"`
	Flags   map[string]bool `mapstructure:"flags"`
}

// StorageConfig locates the session database.
type StorageConfig struct {
	// Path is a .db file or a directory. Empty uses the XDG data dir.
	Path string `mapstructure:"path"`
}

// TimerConfig seeds the timer settings on first run. Once the settings row
// exists in the database it wins over this section.
type TimerConfig struct {
	WorkMinutes             int    `mapstructure:"work_minutes" yaml:"work_minutes"`
	ShortBreakMinutes       int    `mapstructure:"short_break_minutes" yaml:"short_break_minutes"`
	LongBreakMinutes        int    `mapstructure:"long_break_minutes" yaml:"long_break_minutes"`
	SessionsBeforeLongBreak int    `mapstructure:"sessions_before_long_break" yaml:"sessions_before_long_break"`
	DefaultBreakActivity    string `mapstructure:"default_break_activity" yaml:"default_break_activity,omitempty"`
}

// EyeCareConfig holds the eye-care reminder options. Enabled, IntervalMinutes
// and BreakSeconds seed the settings row; the rest are config-only.
type EyeCareConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	IntervalMinutes int           `mapstructure:"interval_minutes"`
	BreakSeconds    int           `mapstructure:"break_seconds"`
	SnoozeDuration  time.Duration `mapstructure:"snooze_duration"`
	MaxSnoozes      int           `mapstructure:"max_snoozes"`
	SnapshotEvery   time.Duration `mapstructure:"snapshot_every"`
}

// SoundConfig holds audio feedback configuration.
type SoundConfig struct {
	// Enabled rings the terminal bell on session and eye-break transitions.
	Enabled bool `mapstructure:"enabled"`
}

// Settings converts the seed sections into domain settings.
func (c Config) Settings() domain.Settings {
	return domain.Settings{
		WorkMinutes:             c.Timer.WorkMinutes,
		ShortBreakMinutes:       c.Timer.ShortBreakMinutes,
		LongBreakMinutes:        c.Timer.LongBreakMinutes,
		SessionsBeforeLongBreak: c.Timer.SessionsBeforeLongBreak,
		DefaultBreakActivity:    domain.BreakActivity(c.Timer.DefaultBreakActivity),
		EyeCareEnabled:          c.EyeCare.Enabled,
		EyeCareIntervalMinutes:  c.EyeCare.IntervalMinutes,
		EyeCareBreakSeconds:     c.EyeCare.BreakSeconds,
	}
}

// Scheduler returns the eye-care scheduler config for settings s, which
// override the seed values once saved.
func (c Config) Scheduler(s domain.Settings) eyecare.Config {
	return eyecare.Config{
		SnoozeDuration: c.EyeCare.SnoozeDuration,
		MaxSnoozes:     c.EyeCare.MaxSnoozes,
		SnapshotEvery:  c.EyeCare.SnapshotEvery,
	}.WithSettings(s)
}

// DatabasePath resolves Storage.Path.
func (c Config) DatabasePath() string {
	return paths.ResolveDatabasePath(c.Storage.Path)
}

// FeatureFlags builds the flag registry.
func (c Config) FeatureFlags() *flags.Registry {
	return flags.New(c.Flags)
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/standclock/traces/traces.jsonl or empty string if home
// dir unavailable.
func DefaultTracesFilePath() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	eye := eyecare.DefaultConfig()
	trace := tracing.DefaultConfig()
	trace.FilePath = DefaultTracesFilePath()

	return Config{
		Timer: TimerConfig{
			WorkMinutes:             domain.DefaultWorkMinutes,
			ShortBreakMinutes:       domain.DefaultShortBreakMinutes,
			LongBreakMinutes:        domain.DefaultLongBreakMinutes,
			SessionsBeforeLongBreak: domain.DefaultSessionsBeforeLongBreak,
		},
		EyeCare: EyeCareConfig{
			Enabled:         eye.Enabled,
			IntervalMinutes: domain.DefaultEyeCareIntervalMinutes,
			BreakSeconds:    domain.DefaultEyeCareBreakSeconds,
			SnoozeDuration:  eye.SnoozeDuration,
			MaxSnoozes:      eye.MaxSnoozes,
			SnapshotEvery:   eye.SnapshotEvery,
		},
		Sound:   SoundConfig{Enabled: true},
		Tracing: trace,
		Flags:   flags.Defaults(),
	}
}

// Validate checks every section and joins the failures.
func Validate(c Config) error {
	return errors.Join(
		ValidateTimer(c.Timer),
		ValidateEyeCare(c.EyeCare),
		ValidateTracing(c.Tracing),
	)
}

// ValidateTimer checks the seed timer settings.
func ValidateTimer(t TimerConfig) error {
	checks := []struct {
		key   string
		value int
	}{
		{"work_minutes", t.WorkMinutes},
		{"short_break_minutes", t.ShortBreakMinutes},
		{"long_break_minutes", t.LongBreakMinutes},
		{"sessions_before_long_break", t.SessionsBeforeLongBreak},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("timer.%s must be positive, got %d", c.key, c.value)
		}
	}
	if _, err := domain.ParseBreakActivity(t.DefaultBreakActivity); err != nil {
		return fmt.Errorf("timer.default_break_activity: %w", err)
	}
	return nil
}

// ValidateEyeCare checks the eye-care section. Durations are only checked
// when the feature is enabled.
func ValidateEyeCare(e EyeCareConfig) error {
	if e.MaxSnoozes < 0 {
		return fmt.Errorf("eye_care.max_snoozes must not be negative, got %d", e.MaxSnoozes)
	}
	if !e.Enabled {
		return nil
	}
	if e.IntervalMinutes <= 0 {
		return fmt.Errorf("eye_care.interval_minutes must be positive, got %d", e.IntervalMinutes)
	}
	if e.BreakSeconds <= 0 {
		return fmt.Errorf("eye_care.break_seconds must be positive, got %d", e.BreakSeconds)
	}
	if e.SnoozeDuration < time.Second {
		return fmt.Errorf("eye_care.snooze_duration must be at least 1s, got %v", e.SnoozeDuration)
	}
	if e.SnapshotEvery < time.Second {
		return fmt.Errorf("eye_care.snapshot_every must be at least 1s, got %v", e.SnapshotEvery)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}

	if t.Exporter != "" {
		switch t.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if t.Enabled {
		if t.Exporter == "file" && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# standclock configuration

# Where the session history lives. A .db file or a directory.
# Default: $XDG_DATA_HOME/standclock/standclock.db
# storage:
#   path: ~/.local/share/standclock

# Timer defaults. Used to seed the settings on first run; after that the
# saved settings win ('standclock settings set --save-default' writes here).
timer:
  work_minutes: 25
  short_break_minutes: 5
  long_break_minutes: 15
  sessions_before_long_break: 4
  # default_break_activity: walking  # standing, walking, stretching, hydration, eye-rest, other

# Eye-care reminders: look away every interval while a focus session runs.
eye_care:
  enabled: true
  interval_minutes: 20
  break_seconds: 20
  snooze_duration: 5m
  max_snoozes: 3
  snapshot_every: 5s

# Terminal bell on session end and eye breaks.
sound:
  enabled: true

# Distributed tracing of database writes
# tracing:
#   enabled: false                 # default: false
#   exporter: file                 # none, file, stdout, otlp (default: file)
#   file_path: ~/.config/standclock/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# Feature flags (all default to true)
# flags:
#   stats-cache: true       # cache daily stats in memory
#   eye-care-restore: true  # resume the eye-care countdown after restart
#   db-watch: true          # reload when another process writes the database
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
