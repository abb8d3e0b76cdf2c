package schedule

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Session is one scheduled class occurrence. EndAt is nil when the row
// was created without a parsable end time; such sessions are never
// finalized by the sweep.
type Session struct {
	ID          string
	Day         string
	Class       string
	Subject     string
	TeacherName string
	EndAt       *time.Time
	AutoMarked  bool
}

// Repository reads session rows in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns a session by id, or nil when no row exists.
func (r *Repository) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, day, class_name, subject, teacher_name, end_at, auto_marked
		FROM sessions WHERE id = $1
	`, id)
	var s Session
	if err := row.Scan(&s.ID, &s.Day, &s.Class, &s.Subject, &s.TeacherName, &s.EndAt, &s.AutoMarked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListUnprocessedByDay returns sessions for the given weekday label that
// have not yet been auto-marked.
func (r *Repository) ListUnprocessedByDay(ctx context.Context, day string) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, day, class_name, subject, teacher_name, end_at, auto_marked
		FROM sessions
		WHERE day = $1 AND NOT auto_marked
		ORDER BY end_at NULLS LAST
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Day, &s.Class, &s.Subject, &s.TeacherName, &s.EndAt, &s.AutoMarked); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
