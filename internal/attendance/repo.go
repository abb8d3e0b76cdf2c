package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// NoIDNumber is the snapshot value stored when a student has no id number.
const NoIDNumber = "no id"

// Statuses written by this system. Check-ins from the app may carry other
// free-form labels; the sweep only ever writes StatusAbsent.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// Record is one attendance row for a (session, student) pair. The student
// and session fields are snapshots taken at write time, never updated.
type Record struct {
	ID            string
	ScheduleID    string
	StudentID     string
	StudentClass  string
	StudentName   string
	StudentNumber string
	Status        string
	Subject       string
	TeacherName   string
	DateLabel     string
	DayLabel      string
	TimeLabel     string
	CreatedAt     time.Time
}

// Repository persists attendance records in Postgres. The table carries a
// unique constraint on (schedule_id, student_id), so inserts are
// insert-if-absent and duplicates are impossible even across concurrent
// writers.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const insertSQL = `
	INSERT INTO attendance
		(id, schedule_id, student_id, student_class, student_name, student_number,
		 status, subject, teacher_name, date_label, day_label, time_label, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (schedule_id, student_id) DO NOTHING
`

// Insert writes a record unless one already exists for its
// (schedule, student) pair. Reports whether a row was actually written.
func (r *Repository) Insert(ctx context.Context, rec Record) (bool, error) {
	rec = withDefaults(rec)
	res, err := r.db.ExecContext(ctx, insertSQL, args(rec)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// FinalizeSession commits a session's absence records and its processed
// flag in a single transaction. Records whose (schedule, student) pair is
// already present are skipped. Returns the number of rows actually written.
// Either the flag and all new absences land together or none of them do.
func (r *Repository) FinalizeSession(ctx context.Context, scheduleID string, records []Record) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	marked := 0
	for _, rec := range records {
		rec = withDefaults(rec)
		res, err := tx.ExecContext(ctx, insertSQL, args(rec)...)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		marked += int(n)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET auto_marked = TRUE WHERE id = $1
	`, scheduleID); err != nil {
		return 0, err
	}

	return marked, tx.Commit()
}

// DeleteByStudent removes every record referencing the student in one
// statement. Returns the number of rows removed.
func (r *Repository) DeleteByStudent(ctx context.Context, studentID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListByStudent returns a student's records, newest first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, schedule_id, student_id, student_class, student_name, student_number,
		       status, subject, teacher_name, date_label, day_label, time_label, created_at
		FROM attendance
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.ScheduleID, &rec.StudentID, &rec.StudentClass,
			&rec.StudentName, &rec.StudentNumber, &rec.Status, &rec.Subject,
			&rec.TeacherName, &rec.DateLabel, &rec.DayLabel, &rec.TimeLabel, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func withDefaults(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.StudentNumber == "" {
		rec.StudentNumber = NoIDNumber
	}
	return rec
}

func args(rec Record) []any {
	return []any{
		rec.ID, rec.ScheduleID, rec.StudentID, rec.StudentClass, rec.StudentName,
		rec.StudentNumber, rec.Status, rec.Subject, rec.TeacherName,
		rec.DateLabel, rec.DayLabel, rec.TimeLabel, rec.CreatedAt,
	}
}
