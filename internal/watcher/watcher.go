// Package watcher notices writes to the session database made by other
// standclock processes.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/standclock/internal/log"
)

// DefaultDebounce coalesces the burst of WAL writes a single commit makes.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors the database file and its WAL and signals after a quiet
// period following the last write.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	names     map[string]struct{}
	dir       string
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	DBPath   string
	Debounce time.Duration
}

// DefaultConfig returns the watcher config for dbPath.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:   dbPath,
		Debounce: DefaultDebounce,
	}
}

// New creates a watcher. Nothing is watched until Start.
func New(cfg Config) (*Watcher, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("watcher: database path is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	base := filepath.Base(cfg.DBPath)
	return &Watcher{
		fsWatcher: fsw,
		names: map[string]struct{}{
			base:          {},
			base + "-wal": {},
		},
		dir:      filepath.Dir(cfg.DBPath),
		debounce: cfg.Debounce,
		onChange: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the database directory. The returned channel receives at
// most one pending signal; extra changes while one is pending are merged.
func (w *Watcher) Start() (<-chan struct{}, error) {
	// SQLite replaces the WAL file, so the directory is watched rather
	// than the files themselves.
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.dir, err)
	}
	log.Debug(log.CatWatcher, "Watching database", "dir", w.dir, "debounce", w.debounce)

	go w.loop()
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.onChange <- struct{}{}:
				log.Debug(log.CatWatcher, "Database changed")
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "Watch error", err)

		case <-w.done:
			return
		}
	}
}

// relevant reports whether event is a write or create of the database or
// its WAL. A fresh WAL shows up as a Create.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	_, ok := w.names[filepath.Base(event.Name)]
	return ok
}
