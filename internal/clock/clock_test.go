package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFake_AdvanceMovesTime(t *testing.T) {
	f := NewFake(time.Time{})
	start := f.Now()
	require.Equal(t, time.Date(2026, 1, 17, 12, 0, 0, 0, time.UTC), start)

	f.Advance(90 * time.Second)
	require.Equal(t, start.Add(90*time.Second), f.Now())
}

func TestFake_TickOnlyReachesLiveTickers(t *testing.T) {
	f := NewFake(time.Time{})
	a := f.NewTicker(time.Second)
	b := f.NewTicker(time.Second)
	b.Stop()
	require.Equal(t, 1, f.Tickers())

	f.Tick()
	select {
	case <-a.C():
	default:
		t.Fatal("live ticker did not receive tick")
	}
	select {
	case <-b.C():
		t.Fatal("stopped ticker received tick")
	default:
	}
}

func TestLoop_StartReplacesPreviousTicker(t *testing.T) {
	f := NewFake(time.Time{})
	l := NewLoop(f, time.Second)

	first := l.Start(func(uint64) {})
	second := l.Start(func(uint64) {})

	require.Equal(t, 1, f.Tickers())
	require.False(t, l.Current(first))
	require.True(t, l.Current(second))

	l.Stop()
	require.False(t, l.Running())
	require.False(t, l.Current(second))
	require.Zero(t, f.Tickers())
}

func TestLoop_DeliversTicks(t *testing.T) {
	f := NewFake(time.Time{})
	l := NewLoop(f, time.Second)
	defer l.Stop()

	var calls atomic.Int32
	gen := l.Start(func(g uint64) {
		if l.Current(g) {
			calls.Add(1)
		}
	})
	require.True(t, l.Current(gen))

	for i := 0; i < 3; i++ {
		f.Tick()
		want := int32(i + 1)
		require.Eventually(t, func() bool { return calls.Load() == want }, time.Second, time.Millisecond)
	}
}

func TestReal_NowAndTicker(t *testing.T) {
	var c Clock = Real{}
	require.WithinDuration(t, time.Now(), c.Now(), time.Second)

	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
}
