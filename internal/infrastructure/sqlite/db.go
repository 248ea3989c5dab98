// Package sqlite is the persistence gateway: one SQLite connection, an
// explicit transaction slot and the repositories bound to either.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/standclock/internal/log"
	"github.com/zjrosen/standclock/internal/sessions/domain"
	"github.com/zjrosen/standclock/internal/tracing"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNoTransaction is returned by Commit when no transaction is open.
	ErrNoTransaction = errors.New("no active transaction")

	// ErrTransactionActive is returned when a transaction is requested while
	// the explicit slot is already taken.
	ErrTransactionActive = errors.New("transaction already active")
)

// DB owns the SQLite connection. The pool is capped at a single connection so
// every statement and transaction is serialized by database/sql.
type DB struct {
	conn *sql.DB

	mu sync.Mutex
	tx *sql.Tx
}

var _ domain.UnitOfWork = (*DB)(nil)

// NewDB opens (creating if needed) the database at path and migrates it.
// An existing file is copied to path+".bak" before migrations run.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := backupExisting(path); err != nil {
		return nil, err
	}

	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(wal)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrateUp(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Debug(log.CatDB, "Database ready", "path", path)
	return &DB{conn: conn}, nil
}

func backupExisting(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat database: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}

	src, err := os.Open(path) //nolint:gosec // G304: path is the configured database file
	if err != nil {
		return fmt.Errorf("failed to open database for backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(path+".bak", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600) //nolint:gosec // G304: derived from database path
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return dst.Close()
}

// migrateUp applies every embedded migration newer than the recorded version.
// Each migration runs in its own transaction together with its version bump.
func migrateUp(conn *sql.DB) error {
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER NOT NULL,
		dirty INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current uint
	err := conn.QueryRow(`SELECT version FROM schema_migrations LIMIT 1`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	defer func() { _ = src.Close() }()

	version, err := src.First()
	for err == nil {
		if version > current {
			if applyErr := applyMigration(conn, src, version); applyErr != nil {
				return applyErr
			}
		}
		version, err = src.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to walk migrations: %w", err)
	}
	return nil
}

func applyMigration(conn *sql.DB, src source.Driver, version uint) (err error) {
	_, span := tracing.Start(context.Background(), tracing.SpanDBMigrate,
		attribute.Int64(tracing.AttrMigrationVersion, int64(version)))
	defer func() { tracing.End(span, err) }()

	r, name, err := src.ReadUp(version)
	if err != nil {
		return fmt.Errorf("failed to read migration %d: %w", version, err)
	}
	body, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		return fmt.Errorf("failed to read migration %d: %w", version, err)
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", version, err)
	}
	if _, err = tx.Exec(string(body)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to apply migration %d (%s): %w", version, name, err)
	}
	if _, err = tx.Exec(`DELETE FROM schema_migrations`); err == nil {
		_, err = tx.Exec(`INSERT INTO schema_migrations (version, dirty) VALUES (?, 0)`, version)
	}
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}

	log.Info(log.CatDB, "Applied migration", "version", version, "name", name)
	return nil
}

// Connection returns the underlying pool.
func (d *DB) Connection() *sql.DB {
	return d.conn
}

// Begin opens the explicit transaction. While it is open, the repositories
// returned by d route through it.
func (d *DB) Begin(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx != nil {
		return ErrTransactionActive
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "begin", Err: err}
	}
	d.tx = tx
	return nil
}

// Commit commits the explicit transaction.
func (d *DB) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx == nil {
		return ErrNoTransaction
	}
	tx := d.tx
	d.tx = nil
	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback discards the explicit transaction. It is a no-op when none is open.
func (d *DB) Rollback() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rollbackLocked()
}

func (d *DB) rollbackLocked() error {
	if d.tx == nil {
		return nil
	}
	tx := d.tx
	d.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return &domain.PersistenceError{Op: "rollback", Err: err}
	}
	return nil
}

// InTransaction runs fn with repositories bound to a fresh transaction.
// fn's error is returned unchanged after rollback; a panic rolls back and is
// re-raised.
func (d *DB) InTransaction(ctx context.Context, fn func(tx domain.Repositories) error) (err error) {
	d.mu.Lock()
	busy := d.tx != nil
	d.mu.Unlock()
	if busy {
		return ErrTransactionActive
	}

	ctx, span := tracing.Start(ctx, tracing.SpanDBTransaction)
	defer func() { tracing.End(span, err) }()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "begin", Err: err}
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.ErrorErr(log.CatDB, "Rollback failed", rbErr)
		}
	}()

	if err = fn(newRepositories(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "commit", Err: err}
	}
	committed = true
	return nil
}

// Settings returns the settings repository on the current connection.
func (d *DB) Settings() domain.SettingsRepository {
	return &settingsRepository{q: router{d}}
}

// SessionTracking returns the session log repository on the current connection.
func (d *DB) SessionTracking() domain.SessionTrackingRepository {
	return &sessionTrackingRepository{q: router{d}}
}

// EyeCare returns the eye-care snapshot repository on the current connection.
func (d *DB) EyeCare() domain.EyeCareRepository {
	return &eyeCareRepository{q: router{d}}
}

// Close rolls back an open explicit transaction and closes the connection.
func (d *DB) Close() error {
	d.mu.Lock()
	rbErr := d.rollbackLocked()
	d.mu.Unlock()
	if rbErr != nil {
		log.ErrorErr(log.CatDB, "Rollback on close failed", rbErr)
	}
	return d.conn.Close()
}

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// router sends each statement to the explicit transaction when one is open
// and to the pool otherwise.
type router struct {
	d *DB
}

func (r router) current() querier {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if r.d.tx != nil {
		return r.d.tx
	}
	return r.d.conn
}

func (r router) Exec(query string, args ...any) (sql.Result, error) {
	return r.current().Exec(query, args...)
}

func (r router) Query(query string, args ...any) (*sql.Rows, error) {
	return r.current().Query(query, args...)
}

func (r router) QueryRow(query string, args ...any) *sql.Row {
	return r.current().QueryRow(query, args...)
}

type txRepositories struct {
	tx *sql.Tx
}

func newRepositories(tx *sql.Tx) domain.Repositories {
	return txRepositories{tx: tx}
}

func (r txRepositories) Settings() domain.SettingsRepository {
	return &settingsRepository{q: r.tx}
}

func (r txRepositories) SessionTracking() domain.SessionTrackingRepository {
	return &sessionTrackingRepository{q: r.tx}
}

func (r txRepositories) EyeCare() domain.EyeCareRepository {
	return &eyeCareRepository{q: r.tx}
}
