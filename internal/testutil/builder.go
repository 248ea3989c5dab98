// Package testutil builds session logs and temporary gateways for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/standclock/internal/infrastructure/sqlite"
	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// NewTestDB opens a migrated gateway in a temp dir, closed on cleanup.
func NewTestDB(t testing.TB) *sqlite.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "standclock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Builder accumulates records and inserts them in order.
type Builder struct {
	t       testing.TB
	repo    domain.SessionTrackingRepository
	records []domain.SessionRecord
}

// NewBuilder writes to repo on Build. repo may be nil when only Records is
// needed.
func NewBuilder(t testing.TB, repo domain.SessionTrackingRepository) *Builder {
	t.Helper()
	return &Builder{t: t, repo: repo}
}

// WithRecord adds a record on date.
func (b *Builder) WithRecord(date string, opts ...RecordOption) *Builder {
	b.records = append(b.records, NewRecord(date, opts...))
	return b
}

// Records returns what has been accumulated so far.
func (b *Builder) Records() []domain.SessionRecord {
	return append([]domain.SessionRecord(nil), b.records...)
}

// Build inserts every record.
func (b *Builder) Build() []domain.SessionRecord {
	b.t.Helper()
	require.NotNil(b.t, b.repo, "Build needs a repository")
	for i := range b.records {
		id, err := b.repo.InsertSession(b.records[i])
		require.NoError(b.t, err)
		b.records[i].ID = id
	}
	return b.Records()
}
