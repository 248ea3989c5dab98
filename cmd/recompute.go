package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/stats"
)

var recomputeDates []string

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild daily aggregates from the session log",
	Long: `Rebuild the daily aggregate rows from the session records.

Aggregates are derived data; this repairs a day whose write was interrupted
or that was edited by hand. Days with a completed focus session are also fed
to the streak.

Examples:
  standclock recompute
  standclock recompute --date 2026-03-13 --date 2026-03-14`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer func() { _ = b.Close() }()

		return runRecompute(cmd.Context(), cmd.OutOrStdout(), b.stats, recomputeDates)
	},
}

func init() {
	recomputeCmd.Flags().StringArrayVar(&recomputeDates, "date", nil, "day to rebuild (repeatable, default today)")
	rootCmd.AddCommand(recomputeCmd)
}

func runRecompute(ctx context.Context, w io.Writer, engine *stats.Engine, dates []string) error {
	if len(dates) == 0 {
		dates = []string{domain.DateKeyOf(now())}
	}
	for _, d := range dates {
		if err := checkDate("date", d); err != nil {
			return err
		}
	}

	for _, d := range dates {
		daily, err := engine.RecomputeDay(ctx, d)
		if err != nil {
			return fmt.Errorf("recomputing %s: %w", d, err)
		}
		if daily.WorkSessionsCompleted > 0 {
			if _, err := engine.UpdateStreak(ctx, d); err != nil {
				return fmt.Errorf("updating streak for %s: %w", d, err)
			}
		}
		if _, err := fmt.Fprintf(w, "%s: %d sessions, %d focus completed, score %d\n",
			d, daily.TotalSessionsStarted, daily.WorkSessionsCompleted, daily.FocusScore); err != nil {
			return err
		}
	}
	return nil
}
