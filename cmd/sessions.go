package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/zjrosen/standclock/internal/presentation"
	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/stats"
)

var sessionsDate string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the sessions logged on a day",
	Long: `List every focus and break session logged on a day, oldest first,
with its outcome, how long it ran and the timer settings it ran under.

Examples:
  standclock sessions
  standclock sessions --date 2026-03-14
  standclock sessions -o json | jq '.[] | select(.outcome == "abandoned")'`,
	Args: cobra.NoArgs,
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

		return runSessions(cmd.Context(), cmd.OutOrStdout(), format, b.stats, sessionsDate)
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsDate, "date", "", "day to list (default today)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(ctx context.Context, w io.Writer, format presentation.Format, engine *stats.Engine, date string) error {
	if date == "" {
		date = domain.DateKeyOf(now())
	}
	if err := checkDate("date", date); err != nil {
		return err
	}
	records := engine.SessionsForDate(ctx, date)
	return presentation.NewFormatter(w, format).FormatSessions(date, presentation.FromSessions(records))
}
