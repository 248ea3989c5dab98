package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/standclock/internal/app"
	"github.com/zjrosen/standclock/internal/clock"
	"github.com/zjrosen/standclock/internal/config"
	"github.com/zjrosen/standclock/internal/eyecare"
	"github.com/zjrosen/standclock/internal/flags"
	"github.com/zjrosen/standclock/internal/log"
	"github.com/zjrosen/standclock/internal/notify"
	"github.com/zjrosen/standclock/internal/paths"
	"github.com/zjrosen/standclock/internal/timer"
	"github.com/zjrosen/standclock/internal/tracing"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const localConfigPath = ".standclock/config.yaml"

var (
	version = "dev"
	cfgFile string
	cfg     config.Config

	debugFlag   bool
	pauseOnBlur bool
)

var rootCmd = &cobra.Command{
	Use:   "standclock",
	Short: "A pomodoro timer with standing breaks and eye-care reminders",
	Long: `A terminal pomodoro timer. Focus sessions alternate with short and long
breaks, every session is logged to a local SQLite history, and a separate
20-20-20 reminder tells you to look away while you focus.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/standclock/config.yaml)")
	rootCmd.PersistentFlags().String("db", "",
		"session database file or directory (overrides storage.path)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text",
		"subcommand output format: text or json")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false,
		"write a debug log (also STANDCLOCK_DEBUG=1; path from STANDCLOCK_LOG)")
	rootCmd.Flags().BoolVar(&pauseOnBlur, "pause-on-blur", false,
		"pause the timer when the terminal loses focus")

	_ = viper.BindPFlag("storage.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("storage.path", defaults.Storage.Path)
	viper.SetDefault("timer.work_minutes", defaults.Timer.WorkMinutes)
	viper.SetDefault("timer.short_break_minutes", defaults.Timer.ShortBreakMinutes)
	viper.SetDefault("timer.long_break_minutes", defaults.Timer.LongBreakMinutes)
	viper.SetDefault("timer.sessions_before_long_break", defaults.Timer.SessionsBeforeLongBreak)
	viper.SetDefault("timer.default_break_activity", defaults.Timer.DefaultBreakActivity)
	viper.SetDefault("eye_care.enabled", defaults.EyeCare.Enabled)
	viper.SetDefault("eye_care.interval_minutes", defaults.EyeCare.IntervalMinutes)
	viper.SetDefault("eye_care.break_seconds", defaults.EyeCare.BreakSeconds)
	viper.SetDefault("eye_care.snooze_duration", defaults.EyeCare.SnoozeDuration)
	viper.SetDefault("eye_care.max_snoozes", defaults.EyeCare.MaxSnoozes)
	viper.SetDefault("eye_care.snapshot_every", defaults.EyeCare.SnapshotEvery)
	viper.SetDefault("sound.enabled", defaults.Sound.Enabled)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	viper.SetDefault("flags", defaults.Flags)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .standclock/config.yaml (current directory)
		// 2. ~/.config/standclock/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			viper.AddConfigPath(paths.ConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create the user default
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if dir := paths.ConfigDir(); dir != "" {
				defaultPath := filepath.Join(dir, "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// configFilePath is where runtime changes (sound toggle, --save-default) are
// written back.
func configFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	if dir := paths.ConfigDir(); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return localConfigPath
}

func runApp(cmd *cobra.Command, _ []string) error {
	debug := os.Getenv("STANDCLOCK_DEBUG") != "" || debugFlag
	if debug {
		logPath := os.Getenv("STANDCLOCK_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		level, _ := log.ParseLevel(os.Getenv("STANDCLOCK_LOG_LEVEL"))
		cleanup, err := log.InitWithTeaLog(logPath, "standclock", level)
		if err != nil {
			return fmt.Errorf("initializing debug log: %w", err)
		}
		defer cleanup()
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	featureFlags := cfg.FeatureFlags()

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	b, err := openBackend(cmd.Context(), featureFlags.Enabled(flags.FlagStatsCache))
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	current := b.settings.Current()
	bell := notify.NewBell(os.Stdout, cfg.Sound.Enabled)
	realClock := clock.Real{}

	engine := timer.New(timer.Config{
		Settings: b.settings,
		Recorder: b.stats,
		Clock:    realClock,
		Notifier: bell,
	})
	defer func() { _ = engine.Close() }()

	eye := eyecare.New(cfg.Scheduler(current),
		eyecare.WithClock(realClock),
		eyecare.WithStore(b.db.EyeCare()),
		eyecare.WithNotifier(bell),
	)
	defer eye.Close()
	if featureFlags.Enabled(flags.FlagEyeCareRestore) {
		if err := eye.Restore(cmd.Context()); err != nil {
			log.ErrorErr(log.CatEyeCare, "Restore failed, starting fresh", err)
		}
	}

	services := app.Services{
		Timer:      engine,
		EyeCare:    eye,
		Stats:      b.stats,
		Settings:   b.settings,
		Bell:       bell,
		Clock:      realClock,
		ConfigPath: configFilePath(),
	}
	if featureFlags.Enabled(flags.FlagDBWatch) {
		services.DBPath = b.path
	}

	model := app.New(services, app.Options{PauseOnBlur: pauseOnBlur, Debug: debug})
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if pauseOnBlur {
		opts = append(opts, tea.WithReportFocus())
	}
	p := tea.NewProgram(&model, opts...)

	_, err = p.Run()

	// Stop the listeners and watcher before the engines close under them.
	if closeErr := model.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
