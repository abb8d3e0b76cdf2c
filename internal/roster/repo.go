package roster

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Roles the system distinguishes. Rows with any other role are ignored
// by the sweep and rejected by the purge role check.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User is one roster row. Class and IDNumber are only set for students.
type User struct {
	UID       string
	Role      string
	Name      string
	Class     string
	IDNumber  string
	CreatedAt time.Time
}

// Repository reads and deletes roster rows in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns a user by uid, or nil when no row exists.
func (r *Repository) Get(ctx context.Context, uid string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT uid, role, name, COALESCE(class_name, ''), COALESCE(id_number, ''), created_at
		FROM users WHERE uid = $1
	`, uid)
	var u User
	if err := row.Scan(&u.UID, &u.Role, &u.Name, &u.Class, &u.IDNumber, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListStudentsByClass returns all students enrolled in the given class.
func (r *Repository) ListStudentsByClass(ctx context.Context, class string) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uid, role, name, COALESCE(class_name, ''), COALESCE(id_number, ''), created_at
		FROM users
		WHERE role = $1 AND class_name = $2
		ORDER BY name
	`, RoleStudent, class)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UID, &u.Role, &u.Name, &u.Class, &u.IDNumber, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Delete removes the roster row for uid. Deleting a missing row is not an error.
func (r *Repository) Delete(ctx context.Context, uid string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	return err
}
