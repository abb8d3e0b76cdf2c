package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"absensi/internal/attendance"
	"absensi/internal/roster"
	"absensi/internal/schedule"
)

// ScheduleStore lists sessions awaiting the sweep.
type ScheduleStore interface {
	ListUnprocessedByDay(ctx context.Context, day string) ([]schedule.Session, error)
}

// RosterStore lists the students enrolled in a class.
type RosterStore interface {
	ListStudentsByClass(ctx context.Context, class string) ([]roster.User, error)
}

// AttendanceStore commits a session's absence records together with its
// processed flag. Implementations must skip records whose
// (schedule, student) pair already exists and report how many were
// actually written, and must make the commit atomic per session.
type AttendanceStore interface {
	FinalizeSession(ctx context.Context, scheduleID string, records []attendance.Record) (int, error)
}

// SessionError records one session whose finalization failed. The session
// stays unprocessed and is retried on the next run.
type SessionError struct {
	ScheduleID string
	Err        error
}

func (e SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.ScheduleID, e.Err)
}

func (e SessionError) Unwrap() error { return e.Err }

// Result summarizes one sweep run.
type Result struct {
	Day        string
	Candidates int
	Finalized  int
	Marked     int
	Skipped    int
	Failures   []SessionError
}

// Sweeper marks students absent for class sessions that ended without a
// check-in. Runs are idempotent: a session is evaluated until the run that
// finalizes it, and never again after.
type Sweeper struct {
	schedules  ScheduleStore
	roster     RosterStore
	attendance AttendanceStore
	loc        *time.Location
	now        func() time.Time
	log        *logrus.Logger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithLogger overrides the logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Sweeper) { s.log = log }
}

// New creates a Sweeper evaluating sessions in the given location.
func New(schedules ScheduleStore, rosterStore RosterStore, att AttendanceStore, loc *time.Location, opts ...Option) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	s := &Sweeper{
		schedules:  schedules,
		roster:     rosterStore,
		attendance: att,
		loc:        loc,
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DayLabel is the weekday label convention shared with session rows.
func DayLabel(t time.Time) string {
	return t.Weekday().String()
}

// Run executes one sweep. Per-session failures are collected in the
// result, not returned as the run error; only a failure to list the day's
// sessions aborts the run.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	now := s.now().In(s.loc)
	res := Result{Day: DayLabel(now)}

	sessions, err := s.schedules.ListUnprocessedByDay(ctx, res.Day)
	if err != nil {
		runFailures.Inc()
		return res, fmt.Errorf("list sessions for %s: %w", res.Day, err)
	}
	runsTotal.Inc()
	res.Candidates = len(sessions)

	if len(sessions) == 0 {
		s.log.WithField("day", res.Day).Info("sweep: no unprocessed sessions")
		return res, nil
	}

	for _, sess := range sessions {
		if sess.EndAt == nil {
			// No usable end time; leave the session unprocessed.
			s.log.WithField("schedule_id", sess.ID).Warn("sweep: session has no end time, skipping")
			res.Skipped++
			continue
		}
		if !now.After(*sess.EndAt) {
			res.Skipped++
			continue
		}

		marked, err := s.finalize(ctx, now, sess)
		if err != nil {
			res.Failures = append(res.Failures, SessionError{ScheduleID: sess.ID, Err: err})
			sessionFailures.Inc()
			s.log.WithError(err).WithField("schedule_id", sess.ID).Error("sweep: session finalize failed")
			continue
		}
		res.Finalized++
		res.Marked += marked
		sessionsFinalized.Inc()
		studentsMarked.Add(float64(marked))
	}

	s.log.WithFields(logrus.Fields{
		"day":        res.Day,
		"candidates": res.Candidates,
		"finalized":  res.Finalized,
		"marked":     res.Marked,
		"skipped":    res.Skipped,
		"failures":   len(res.Failures),
	}).Info("sweep: run complete")
	return res, nil
}

// finalize stages an absence record for every enrolled student and commits
// them with the session's processed flag in one store call. Students who
// already have a record for the session are skipped by the store.
func (s *Sweeper) finalize(ctx context.Context, now time.Time, sess schedule.Session) (int, error) {
	students, err := s.roster.ListStudentsByClass(ctx, sess.Class)
	if err != nil {
		return 0, fmt.Errorf("list students of class %s: %w", sess.Class, err)
	}

	end := sess.EndAt.In(s.loc)
	records := make([]attendance.Record, 0, len(students))
	for _, student := range students {
		number := student.IDNumber
		if number == "" {
			number = attendance.NoIDNumber
		}
		records = append(records, attendance.Record{
			ScheduleID:    sess.ID,
			StudentID:     student.UID,
			StudentClass:  sess.Class,
			StudentName:   student.Name,
			StudentNumber: number,
			Status:        attendance.StatusAbsent,
			Subject:       sess.Subject,
			TeacherName:   sess.TeacherName,
			DateLabel:     now.Format("02/01/2006"),
			DayLabel:      DayLabel(now),
			TimeLabel:     end.Format("15:04"),
			CreatedAt:     now,
		})
	}

	return s.attendance.FinalizeSession(ctx, sess.ID, records)
}
