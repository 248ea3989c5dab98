package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/zjrosen/standclock/internal/ui/styles"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" and "json"; empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	format Format
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer, format Format) *Formatter {
	return &Formatter{
		writer: writer,
		format: format,
	}
}

// FormatDay writes one day's stats.
func (f *Formatter) FormatDay(d DailyStatsDTO) error {
	if f.format == FormatJSON {
		return f.encode(d)
	}
	return f.print(keyValues(
		"Date", d.Date,
		"Focus", fmt.Sprintf("%d completed, %d skipped, %d abandoned", d.FocusCompleted, d.FocusSkipped, d.FocusAbandoned),
		"Breaks", fmt.Sprintf("%d completed, %d skipped, %d abandoned", d.BreaksCompleted, d.BreaksSkipped, d.BreaksAbandoned),
		"Work time", styles.FormatDuration(d.WorkSeconds),
		"Break time", styles.FormatDuration(d.BreakSeconds),
		"Standing", styles.FormatDuration(d.StandingSeconds),
		"Exercise", styles.FormatDuration(d.ExerciseSeconds),
		"Activities", fmt.Sprintf("standing %d, walking %d, stretching %d, other %d",
			d.Activities.Standing, d.Activities.Walking, d.Activities.Stretching, d.Activities.Other),
		"Completion", strconv.Itoa(d.CompletionRate)+"%",
		"Focus score", strconv.Itoa(d.FocusScore),
		"Streak day", yesNo(d.StreakDay),
	))
}

// FormatRange writes a table of days followed by the summary.
func (f *Formatter) FormatRange(r RangeDTO) error {
	if f.format == FormatJSON {
		return f.encode(r)
	}

	rows := make([][]string, len(r.Days))
	for i, d := range r.Days {
		rows[i] = []string{
			d.Date,
			strconv.Itoa(d.FocusCompleted),
			styles.FormatDuration(d.WorkSeconds),
			styles.FormatDuration(d.BreakSeconds),
			strconv.Itoa(d.CompletionRate) + "%",
			strconv.Itoa(d.FocusScore),
		}
	}
	days := newTable().
		Headers("Date", "Focus", "Work", "Break", "Done", "Score").
		Rows(rows...)

	s := r.Summary
	best := "-"
	if s.MostProductiveDate != "" {
		best = s.MostProductiveDate
	}
	summary := keyValues(
		"Range", r.From+" to "+r.To,
		"Active days", fmt.Sprintf("%d of %d", s.ActiveDays, s.Days),
		"Sessions", strconv.Itoa(s.TotalSessions),
		"Focus", strconv.Itoa(s.CompletedFocus),
		"Work time", styles.FormatDuration(s.WorkSeconds),
		"Break time", styles.FormatDuration(s.BreakSeconds),
		"Avg focus", styles.FormatDuration(s.AverageFocusSeconds),
		"Avg score", strconv.Itoa(s.AverageFocusScore),
		"Best day", best,
	)
	return f.print(lipgloss.JoinVertical(lipgloss.Left, days.String(), summary))
}

// FormatSessions writes the session log for one date.
func (f *Formatter) FormatSessions(date string, sessions []SessionDTO) error {
	if f.format == FormatJSON {
		return f.encode(sessions)
	}
	if len(sessions) == 0 {
		_, err := fmt.Fprintf(f.writer, "No sessions on %s\n", date)
		return err
	}

	rows := make([][]string, len(sessions))
	for i, s := range sessions {
		rows[i] = []string{
			s.StartedAt.Local().Format("15:04"),
			s.Mode,
			s.Outcome,
			styles.FormatDuration(s.ActualSeconds) + " / " + styles.FormatDuration(s.PlannedSeconds),
			s.Activity,
			s.Settings,
		}
	}
	return f.print(newTable().
		Headers("Start", "Mode", "Outcome", "Ran", "Activity", "Settings").
		Rows(rows...).
		String())
}

// FormatSettings writes the settings row.
func (f *Formatter) FormatSettings(s SettingsDTO) error {
	if f.format == FormatJSON {
		return f.encode(s)
	}
	activity := s.DefaultBreakActivity
	if activity == "" {
		activity = "none"
	}
	eye := "off"
	if s.EyeCareEnabled {
		eye = fmt.Sprintf("every %dm, %ds break", s.EyeCareIntervalMinutes, s.EyeCareBreakSeconds)
	}
	return f.print(keyValues(
		"Focus", fmt.Sprintf("%dm", s.WorkMinutes),
		"Short break", fmt.Sprintf("%dm", s.ShortBreakMinutes),
		"Long break", fmt.Sprintf("%dm", s.LongBreakMinutes),
		"Long break every", fmt.Sprintf("%d sessions", s.SessionsBeforeLongBreak),
		"Break activity", activity,
		"Eye care", eye,
		"Sessions", fmt.Sprintf("%d (%d completed)", s.Sessions, s.CompletedSessions),
	))
}

// FormatOverview writes streak and lifetime totals.
func (f *Formatter) FormatOverview(o OverviewDTO) error {
	if f.format == FormatJSON {
		return f.encode(o)
	}
	last := o.LastActivityDate
	if last == "" {
		last = "never"
	}
	return f.print(keyValues(
		"Current streak", fmt.Sprintf("%d days", o.CurrentStreak),
		"Longest streak", fmt.Sprintf("%d days", o.LongestStreak),
		"Last focus day", last,
		"Sessions", strconv.Itoa(o.TotalSessions),
		"Focus hours", strconv.FormatFloat(o.TotalFocusHours, 'f', 1, 64),
		"Best score", strconv.Itoa(o.BestFocusScore),
	))
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (f *Formatter) print(s string) error {
	_, err := fmt.Fprintln(f.writer, s)
	return err
}

func newTable() *table.Table {
	return table.New().Border(lipgloss.NormalBorder())
}

// keyValues renders label/value pairs as an aligned two-column block.
func keyValues(pairs ...string) string {
	width := 0
	for i := 0; i < len(pairs); i += 2 {
		width = max(width, lipgloss.Width(pairs[i]))
	}
	label := lipgloss.NewStyle().Width(width + 2)
	lines := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		lines = append(lines, label.Render(pairs[i])+pairs[i+1])
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
