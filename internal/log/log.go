// Package log writes leveled, categorized key=value lines to the debug log
// and republishes each line for the in-app tail. Nothing is written until
// InitWithTeaLog or SetOutput installs a destination.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/standclock/internal/pubsub"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a name such as "warn" to its level. Unknown or empty names
// return LevelDebug and false.
func ParseLevel(s string) (Level, bool) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), true
		}
	}
	return LevelDebug, false
}

// Category groups related log messages.
type Category string

const (
	CatDB       Category = "db"       // Gateway, migrations, transactions
	CatConfig   Category = "config"   // Configuration loading/saving
	CatTimer    Category = "timer"    // Focus/break state machine and its writer
	CatStats    Category = "stats"    // Aggregation, streaks, queries
	CatEyeCare  Category = "eyecare"  // Break-reminder scheduler
	CatSettings Category = "settings" // Settings provider
	CatCache    Category = "cache"
	CatWatcher  Category = "watcher"
	CatApp      Category = "app" // Terminal host
	CatTrace    Category = "trace"
)

// recentLines bounds the history returned by Recent.
const recentLines = 50

type logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Level
	now      func() time.Time
	recent   []string
	broker   *pubsub.Broker[string]
}

var std = &logger{now: time.Now}

// InitWithTeaLog opens path through tea.LogToFile and starts logging at
// minLevel. The returned func closes the file and stops logging.
func InitWithTeaLog(path, prefix string, minLevel Level) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	SetOutput(f, minLevel)
	return func() {
		SetOutput(nil, minLevel)
		_ = f.Close()
	}, nil
}

// SetOutput replaces the destination. A nil writer turns logging off and
// clears the recent history.
func SetOutput(w io.Writer, minLevel Level) {
	std.mu.Lock()
	defer std.mu.Unlock()

	std.out = w
	std.minLevel = minLevel
	if w == nil {
		std.recent = nil
		if std.broker != nil {
			std.broker.Close()
			std.broker = nil
		}
		return
	}
	if std.broker == nil {
		std.broker = pubsub.NewBroker[string](pubsub.WithNow(std.now))
	}
}

// Recent returns up to n of the latest lines, oldest first.
func Recent(n int) []string {
	std.mu.Lock()
	defer std.mu.Unlock()
	if n > len(std.recent) {
		n = len(std.recent)
	}
	return append([]string(nil), std.recent[len(std.recent)-n:]...)
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	std.log(LevelDebug, cat, msg, fields)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	std.log(LevelInfo, cat, msg, fields)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	std.log(LevelWarn, cat, msg, fields)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	std.log(LevelError, cat, msg, fields)
}

// ErrorErr logs at error level with err appended as the "error" field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	std.log(LevelError, cat, msg, fields)
}

// formatLine renders one line without the trailing newline:
//
//	2026-03-14T09:00:00 [WARN] [timer] message key=value orphan=<missing>
func formatLine(at time.Time, level Level, cat Category, msg string, fields []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", at.Format("2006-01-02T15:04:05"), level, cat, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", fields[len(fields)-1])
	}
	return b.String()
}

func (l *logger) log(level Level, cat Category, msg string, fields []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil || level < l.minLevel {
		return
	}

	line := formatLine(l.now(), level, cat, msg, fields)
	_, _ = io.WriteString(l.out, line+"\n")

	l.recent = append(l.recent, line)
	if len(l.recent) > recentLines {
		l.recent = l.recent[len(l.recent)-recentLines:]
	}
	l.broker.Publish(pubsub.CreatedEvent, line)
}

// LogEvent carries one line, without its newline.
type LogEvent = pubsub.Event[string]

// LogListener wraps a continuous listener for log events.
type LogListener = pubsub.ContinuousListener[string]

// NewListener follows new lines until ctx is cancelled. It returns nil while
// logging is off.
func NewListener(ctx context.Context) *LogListener {
	std.mu.Lock()
	broker := std.broker
	std.mu.Unlock()
	if broker == nil {
		return nil
	}
	return pubsub.NewContinuousListener[string](ctx, broker)
}
