package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/standclock/internal/sessions/domain"
)

type eyeCareRepository struct {
	q querier
}

var _ domain.EyeCareRepository = (*eyeCareRepository)(nil)

func (r *eyeCareRepository) LoadSnapshot() (domain.EyeCareSnapshot, bool, error) {
	var s domain.EyeCareSnapshot
	err := r.q.QueryRow(
		`SELECT seconds_until_break, saved_at, is_active FROM eye_care_state WHERE id = 1`,
	).Scan(&s.SecondsUntilBreak, &s.SavedAt, &s.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EyeCareSnapshot{}, false, nil
	}
	if err != nil {
		return domain.EyeCareSnapshot{}, false, fmt.Errorf("failed to load eye care snapshot: %w", err)
	}
	return s, true, nil
}

func (r *eyeCareRepository) SaveSnapshot(s domain.EyeCareSnapshot) error {
	_, err := r.q.Exec(
		`INSERT INTO eye_care_state (id, seconds_until_break, saved_at, is_active) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seconds_until_break = excluded.seconds_until_break,
			saved_at = excluded.saved_at,
			is_active = excluded.is_active`,
		s.SecondsUntilBreak, s.SavedAt, s.Active,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "save eye care snapshot", Err: err}
	}
	return nil
}
