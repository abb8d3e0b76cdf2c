package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"absensi/internal/roster"
	"absensi/internal/schedule"
)

var (
	// ErrSessionNotFound signals a check-in against an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotStudent signals a check-in by a caller without a student role.
	ErrNotStudent = errors.New("caller is not a student")
)

// RecordInserter writes records with insert-if-absent semantics.
type RecordInserter interface {
	Insert(ctx context.Context, rec Record) (bool, error)
}

// SessionGetter loads one session for snapshotting.
type SessionGetter interface {
	Get(ctx context.Context, id string) (*schedule.Session, error)
}

// UserGetter loads one roster entry for snapshotting.
type UserGetter interface {
	Get(ctx context.Context, uid string) (*roster.User, error)
}

// Service records student check-ins. The uniqueness constraint on
// (schedule, student) makes repeat check-ins no-ops, and also blocks the
// sweep from overwriting a check-in with an absence.
type Service struct {
	repo     RecordInserter
	sessions SessionGetter
	users    UserGetter
	loc      *time.Location
	now      func() time.Time
}

// NewService creates a check-in service operating in the given location.
func NewService(repo RecordInserter, sessions SessionGetter, users UserGetter, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, sessions: sessions, users: users, loc: loc, now: time.Now}
}

// CheckIn writes a "present" record for the student and session. Reports
// whether a new record was written; false means a record for the pair
// already existed.
func (s *Service) CheckIn(ctx context.Context, studentUID, scheduleID string) (Record, bool, error) {
	if studentUID == "" || scheduleID == "" {
		return Record{}, false, errors.New("student and schedule required")
	}

	sess, err := s.sessions.Get(ctx, scheduleID)
	if err != nil {
		return Record{}, false, fmt.Errorf("load session %s: %w", scheduleID, err)
	}
	if sess == nil {
		return Record{}, false, ErrSessionNotFound
	}

	student, err := s.users.Get(ctx, studentUID)
	if err != nil {
		return Record{}, false, fmt.Errorf("load student %s: %w", studentUID, err)
	}
	if student == nil || student.Role != roster.RoleStudent {
		return Record{}, false, ErrNotStudent
	}

	now := s.now().In(s.loc)
	rec := Record{
		ScheduleID:    sess.ID,
		StudentID:     student.UID,
		StudentClass:  sess.Class,
		StudentName:   student.Name,
		StudentNumber: student.IDNumber,
		Status:        StatusPresent,
		Subject:       sess.Subject,
		TeacherName:   sess.TeacherName,
		DateLabel:     now.Format("02/01/2006"),
		DayLabel:      now.Weekday().String(),
		TimeLabel:     now.Format("15:04"),
		CreatedAt:     now,
	}
	inserted, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return Record{}, false, err
	}
	return rec, inserted, nil
}
