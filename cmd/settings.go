package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zjrosen/standclock/internal/config"
	"github.com/zjrosen/standclock/internal/presentation"
	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/settings"
	"github.com/zjrosen/standclock/internal/stats"
)

// settingsChange holds the flags the user actually passed; nil leaves the
// stored value alone.
type settingsChange struct {
	work        *int
	short       *int
	long        *int
	every       *int
	activity    *string
	eyeCare     *bool
	eyeInterval *int
	eyeBreak    *int
}

func (c settingsChange) empty() bool {
	return c == settingsChange{}
}

func (c settingsChange) apply(s domain.Settings) (domain.Settings, error) {
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setInt(&s.WorkMinutes, c.work)
	setInt(&s.ShortBreakMinutes, c.short)
	setInt(&s.LongBreakMinutes, c.long)
	setInt(&s.SessionsBeforeLongBreak, c.every)
	setInt(&s.EyeCareIntervalMinutes, c.eyeInterval)
	setInt(&s.EyeCareBreakSeconds, c.eyeBreak)
	if c.eyeCare != nil {
		s.EyeCareEnabled = *c.eyeCare
	}
	if c.activity != nil {
		a, err := domain.ParseBreakActivity(*c.activity)
		if err != nil {
			return s, err
		}
		s.DefaultBreakActivity = a
	}
	return s, nil
}

var saveDefault bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the timer settings",
	Long: `Show or change the saved timer and eye-care settings.

Settings live in the session database so a running timer picks up changes
made here. Use --save-default to also write the timer section of the config
file, which seeds new databases.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsShowCmd.RunE(cmd, args)
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := presentation.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer func() { _ = b.Close() }()

		return runSettingsShow(cmd.Context(), cmd.OutOrStdout(), format, b.settings, b.stats)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings",
	Long: `Change one or more settings. Only the flags you pass are changed.

Examples:
  # 50/10 focus rhythm with a long break every 3 sessions
  standclock settings set --work 50 --short 10 --every 3

  # Default break activity for new breaks
  standclock settings set --activity walking

  # Eye-care reminders every 30 minutes, 30 second breaks
  standclock settings set --eye-interval 30 --eye-break 30

  # Also make these the defaults for new databases
  standclock settings set --work 45 --save-default`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		change, err := changeFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		if change.empty() {
			return errors.New("nothing to change: pass at least one setting flag")
		}
		b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer func() { _ = b.Close() }()

		savePath := ""
		if saveDefault {
			savePath = configFilePath()
		}
		return runSettingsSet(cmd.Context(), cmd.OutOrStdout(), b.settings, change, savePath)
	},
}

func init() {
	addSettingsFlags(settingsSetCmd.Flags())
	settingsSetCmd.Flags().BoolVar(&saveDefault, "save-default", false, "also write the timer values to the config file")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func addSettingsFlags(f *pflag.FlagSet) {
	f.Int("work", 0, "focus minutes")
	f.Int("short", 0, "short break minutes")
	f.Int("long", 0, "long break minutes")
	f.Int("every", 0, "focus sessions before a long break")
	f.String("activity", "", "default break activity (standing, walking, stretching, hydration, eye-rest, other, or \"\" for none)")
	f.Bool("eye-care", true, "enable eye-care reminders")
	f.Int("eye-interval", 0, "minutes of focus between eye breaks")
	f.Int("eye-break", 0, "eye break length in seconds")
}

func changeFromFlags(f *pflag.FlagSet) (settingsChange, error) {
	var c settingsChange
	ints := map[string]**int{
		"work":         &c.work,
		"short":        &c.short,
		"long":         &c.long,
		"every":        &c.every,
		"eye-interval": &c.eyeInterval,
		"eye-break":    &c.eyeBreak,
	}
	for name, dst := range ints {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetInt(name)
		if err != nil {
			return c, err
		}
		*dst = &v
	}
	if f.Changed("activity") {
		v, err := f.GetString("activity")
		if err != nil {
			return c, err
		}
		c.activity = &v
	}
	if f.Changed("eye-care") {
		v, err := f.GetBool("eye-care")
		if err != nil {
			return c, err
		}
		c.eyeCare = &v
	}
	return c, nil
}

func runSettingsShow(ctx context.Context, w io.Writer, format presentation.Format, provider *settings.Provider, engine *stats.Engine) error {
	s := provider.Current()
	st := engine.StatsForSettings(ctx, s.Snapshot())
	return presentation.NewFormatter(w, format).FormatSettings(presentation.FromSettings(s, st))
}

// runSettingsSet applies change through the provider. A non-empty savePath
// also rewrites the timer section of that config file.
func runSettingsSet(ctx context.Context, w io.Writer, provider *settings.Provider, change settingsChange, savePath string) error {
	next, err := change.apply(provider.Current())
	if err != nil {
		return err
	}
	if err := provider.Update(ctx, next); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	if savePath != "" {
		err := config.SaveTimerDefaults(savePath, config.TimerConfig{
			WorkMinutes:             next.WorkMinutes,
			ShortBreakMinutes:       next.ShortBreakMinutes,
			LongBreakMinutes:        next.LongBreakMinutes,
			SessionsBeforeLongBreak: next.SessionsBeforeLongBreak,
			DefaultBreakActivity:    string(next.DefaultBreakActivity),
		})
		if err != nil {
			return fmt.Errorf("settings saved but config not updated: %w", err)
		}
	}

	_, err = fmt.Fprintf(w, "Settings saved: %s", next.Snapshot().String())
	if err == nil && savePath != "" {
		_, err = fmt.Fprintf(w, " (defaults written to %s)", savePath)
	}
	if err == nil {
		_, err = fmt.Fprintln(w)
	}
	return err
}
