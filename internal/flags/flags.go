// Package flags provides feature flag support.
// Flags are read-only after initialization and unknown flags read as false.
package flags

import (
	"maps"

	"github.com/zjrosen/standclock/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagStatsCache serves DailyStats reads from an in-memory cache.
	FlagStatsCache = "stats-cache"

	// FlagEyeCareRestore resumes the saved eye-care countdown at startup.
	FlagEyeCareRestore = "eye-care-restore"

	// FlagDBWatch reloads settings and today's stats when another process
	// writes the database.
	FlagDBWatch = "db-watch"
)

// Defaults returns the value of every known flag when config is silent.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagStatsCache:     true,
		FlagEyeCareRestore: true,
		FlagDBWatch:        true,
	}
}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map layered over Defaults.
func New(flags map[string]bool) *Registry {
	merged := Defaults()
	maps.Copy(merged, flags)
	r := &Registry{flags: merged}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(merged), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags and on a nil registry.
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
