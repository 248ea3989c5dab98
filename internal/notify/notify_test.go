package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBell_WritesBellWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	b := NewBell(&buf, true)

	b.Alert(KindSessionComplete)
	b.Alert(KindEyeBreakDue)
	require.Equal(t, "\a\a", buf.String())
}

func TestBell_SilentWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	b := NewBell(&buf, false)

	b.Alert(KindSessionComplete)
	require.Empty(t, buf.String())
	require.False(t, b.Enabled())

	b.SetEnabled(true)
	require.True(t, b.Enabled())
	b.Alert(KindAction)
	require.Equal(t, "\a", buf.String())
}

func TestBell_NilWriter(t *testing.T) {
	require.NotPanics(t, func() { NewBell(nil, true).Alert(KindAction) })
}

func TestFunc(t *testing.T) {
	var got []Kind
	var n Notifier = Func(func(k Kind) { got = append(got, k) })
	n.Alert(KindEyeBreakOver)
	Nop{}.Alert(KindEyeBreakOver)
	require.Equal(t, []Kind{KindEyeBreakOver}, got)
}
