// Package notify delivers fire-and-forget alerts for timer and eye-care
// transitions.
package notify

import (
	"io"
	"sync"

	"github.com/zjrosen/standclock/internal/log"
)

// Kind identifies what an alert is about.
type Kind string

const (
	// KindSessionComplete fires when a countdown reaches zero.
	KindSessionComplete Kind = "session_complete"
	// KindAction fires on reset and skip.
	KindAction Kind = "action"
	// KindEyeBreakDue fires when an eye-care break begins.
	KindEyeBreakDue Kind = "eye_break_due"
	// KindEyeBreakOver fires when an eye-care break runs out.
	KindEyeBreakOver Kind = "eye_break_over"
)

// Notifier raises an alert. Implementations must not block the caller and
// never report failures.
type Notifier interface {
	Alert(kind Kind)
}

// Nop discards every alert.
type Nop struct{}

// Alert does nothing.
func (Nop) Alert(Kind) {}

// Func adapts a function to Notifier.
type Func func(Kind)

// Alert calls f.
func (f Func) Alert(kind Kind) { f(kind) }

// Bell writes the terminal bell character to a writer.
type Bell struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
}

// NewBell returns a Bell writing to w. When enabled is false alerts are only
// logged.
func NewBell(w io.Writer, enabled bool) *Bell {
	return &Bell{w: w, enabled: enabled}
}

// SetEnabled toggles sound at runtime.
func (b *Bell) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// Enabled reports whether alerts make a sound.
func (b *Bell) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Alert rings the bell.
func (b *Bell) Alert(kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log.Debug(log.CatApp, "Alert", "kind", kind, "sound", b.enabled)
	if !b.enabled || b.w == nil {
		return
	}
	if _, err := io.WriteString(b.w, "\a"); err != nil {
		log.Warn(log.CatApp, "Bell write failed", "error", err)
	}
}
