package cmd

import (
	"context"
	"fmt"

	"github.com/zjrosen/standclock/internal/infrastructure/sqlite"
	"github.com/zjrosen/standclock/internal/settings"
	"github.com/zjrosen/standclock/internal/stats"
)

// backend is the storage stack shared by the TUI and the subcommands.
type backend struct {
	path     string
	db       *sqlite.DB
	stats    *stats.Engine
	settings *settings.Provider
}

// openBackend opens the configured database and loads the saved settings,
// storing the config seed on first run.
func openBackend(ctx context.Context, dailyCache bool) (*backend, error) {
	path := cfg.DatabasePath()
	db, err := sqlite.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening session database %s: %w", path, err)
	}
	return newBackend(ctx, path, db, dailyCache)
}

func newBackend(ctx context.Context, path string, db *sqlite.DB, dailyCache bool) (*backend, error) {
	provider := settings.NewProvider(db.Settings(), cfg.Settings())
	if err := provider.Reload(ctx); err != nil {
		provider.Close()
		_ = db.Close()
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return &backend{
		path:     path,
		db:       db,
		stats:    stats.NewEngine(db, stats.WithDailyCache(dailyCache)),
		settings: provider,
	}, nil
}

// Close shuts the engines down before the connection.
func (b *backend) Close() error {
	b.stats.Close()
	b.settings.Close()
	return b.db.Close()
}
