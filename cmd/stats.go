package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/standclock/internal/presentation"
	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/stats"
)

// now is replaced in tests.
var now = time.Now

var outputFormat string

type statsOptions struct {
	date string
	from string
	to   string
	days int
	all  bool
}

var statsOpts statsOptions

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show focus statistics",
	Long: `Show focus statistics from the session history.

Without flags, prints today's totals. Dates are local calendar days in
YYYY-MM-DD form.

Examples:
  # Today
  standclock stats

  # A single day
  standclock stats --date 2026-03-14

  # The last 7 days as a table with a summary
  standclock stats --days 7

  # An explicit range
  standclock stats --from 2026-03-01 --to 2026-03-31

  # Streak and lifetime totals
  standclock stats --all

  # Machine readable
  standclock stats --days 30 -o json | jq '.summary'`,
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

		return runStats(cmd.Context(), cmd.OutOrStdout(), format, b.stats, statsOpts)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsOpts.date, "date", "", "show a single day (default today)")
	statsCmd.Flags().StringVar(&statsOpts.from, "from", "", "range start (inclusive)")
	statsCmd.Flags().StringVar(&statsOpts.to, "to", "", "range end (inclusive, default today)")
	statsCmd.Flags().IntVar(&statsOpts.days, "days", 0, "show the N days ending at --to")
	statsCmd.Flags().BoolVar(&statsOpts.all, "all", false, "show streak and all-time totals")
	statsCmd.MarkFlagsMutuallyExclusive("date", "from")
	statsCmd.MarkFlagsMutuallyExclusive("date", "days")
	statsCmd.MarkFlagsMutuallyExclusive("from", "days")
	statsCmd.MarkFlagsMutuallyExclusive("all", "date")
	rootCmd.AddCommand(statsCmd)
}

func runStats(ctx context.Context, w io.Writer, format presentation.Format, engine *stats.Engine, opts statsOptions) error {
	out := presentation.NewFormatter(w, format)
	today := domain.DateKeyOf(now())

	if opts.all {
		return out.FormatOverview(presentation.FromOverview(engine.Streak(ctx), engine.AllTimeStats(ctx)))
	}

	if opts.from == "" && opts.days <= 0 && opts.to == "" {
		date := opts.date
		if date == "" {
			date = today
		}
		if err := checkDate("date", date); err != nil {
			return err
		}
		return out.FormatDay(presentation.FromDailyStats(engine.DailyStats(ctx, date)))
	}

	to := opts.to
	if to == "" {
		to = today
	}
	if err := checkDate("to", to); err != nil {
		return err
	}
	from := opts.from
	switch {
	case from != "":
		if err := checkDate("from", from); err != nil {
			return err
		}
	case opts.days > 0:
		from, _ = domain.AddDays(to, -(opts.days - 1))
	default:
		from = to
	}

	rows := engine.DateRangeStats(ctx, from, to)
	if rows == nil {
		return fmt.Errorf("invalid range %s to %s", from, to)
	}
	return out.FormatRange(presentation.FromRange(rows[0].Date, to, rows, stats.Summarize(rows)))
}

func checkDate(flag, value string) error {
	if _, err := domain.ParseDateKey(value); err != nil {
		return fmt.Errorf("--%s: %q is not a YYYY-MM-DD date", flag, value)
	}
	return nil
}
