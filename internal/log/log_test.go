package log

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	std.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	SetOutput(&buf, level)
	t.Cleanup(func() {
		SetOutput(nil, LevelDebug)
		std.now = time.Now
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warn")
	require.True(t, ok)
	require.Equal(t, LevelWarn, l)

	l, ok = ParseLevel("ERROR")
	require.True(t, ok)
	require.Equal(t, LevelError, l)

	l, ok = ParseLevel("")
	require.False(t, ok)
	require.Equal(t, LevelDebug, l)

	require.Equal(t, "UNKNOWN", Level(9).String())
}

func TestLog_FormatsFields(t *testing.T) {
	buf := capture(t, LevelDebug)

	Warn(CatTimer, "Session not queued", "guid", "abc", "orphan")
	ErrorErr(CatDB, "Insert failed", errors.New("disk full"))

	require.Equal(t,
		"2026-03-14T09:00:00 [WARN] [timer] Session not queued guid=abc orphan=<missing>\n"+
			"2026-03-14T09:00:00 [ERROR] [db] Insert failed error=disk full\n",
		buf.String())
}

func TestLog_MinLevelFilters(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug(CatStats, "skipped")
	Info(CatStats, "skipped")
	Error(CatStats, "kept")

	require.Contains(t, buf.String(), "kept")
	require.NotContains(t, buf.String(), "skipped")
}

func TestLog_OffWithoutOutput(t *testing.T) {
	SetOutput(nil, LevelDebug)
	Info(CatApp, "nowhere")

	require.Empty(t, Recent(10))
	require.Nil(t, NewListener(context.Background()))
}

func TestRecent_KeepsLatestLines(t *testing.T) {
	capture(t, LevelDebug)

	for i := 0; i < recentLines+5; i++ {
		Debug(CatApp, "tick", "n", i)
	}

	all := Recent(recentLines + 100)
	require.Len(t, all, recentLines)
	require.Contains(t, all[0], "n=5")

	last := Recent(2)
	require.Len(t, last, 2)
	require.Contains(t, last[1], "n=54")
}

func TestNewListener_ReceivesLines(t *testing.T) {
	capture(t, LevelDebug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewListener(ctx)
	require.NotNil(t, l)

	cmd := l.Listen()
	Info(CatWatcher, "Database changed")

	msg := cmd()
	ev, ok := msg.(LogEvent)
	require.True(t, ok, "got %T", msg)
	require.Equal(t, "2026-03-14T09:00:00 [INFO] [watcher] Database changed", ev.Payload)
}
