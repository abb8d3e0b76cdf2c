package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"absensi/internal/identity"
	"absensi/internal/roster"
)

// Errors the HTTP boundary maps to response codes. Anything else coming
// out of Purge is an internal failure.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")
)

// RosterStore is the slice of the roster repo the purge needs.
type RosterStore interface {
	Get(ctx context.Context, uid string) (*roster.User, error)
	Delete(ctx context.Context, uid string) error
}

// AttendanceStore deletes a student's records in one atomic batch.
type AttendanceStore interface {
	DeleteByStudent(ctx context.Context, studentID string) (int, error)
}

// PurgeResult reports what a completed purge removed.
type PurgeResult struct {
	TargetUID      string
	RecordsDeleted int
}

// Service removes accounts: the identity, the roster row, and every
// attendance record of the target. Deletions are irreversible and the
// three steps are not a single transaction; a mid-sequence failure leaves
// the earlier steps done.
type Service struct {
	provider   identity.Provider
	roster     RosterStore
	attendance AttendanceStore
	log        *logrus.Logger
}

// NewService creates a purge service.
func NewService(provider identity.Provider, rosterStore RosterStore, att AttendanceStore, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{provider: provider, roster: rosterStore, attendance: att, log: log}
}

// Purge authenticates the caller, checks their role, and removes the
// target account. Only callers whose roster role is teacher or admin may
// purge.
func (s *Service) Purge(ctx context.Context, token, targetUID string) (PurgeResult, error) {
	if token == "" {
		return PurgeResult{}, ErrUnauthenticated
	}
	if targetUID == "" {
		return PurgeResult{}, fmt.Errorf("%w: target uid required", ErrInvalidArgument)
	}

	callerUID, err := s.provider.VerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return PurgeResult{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return PurgeResult{}, fmt.Errorf("verify token: %w", err)
	}

	caller, err := s.roster.Get(ctx, callerUID)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("load caller %s: %w", callerUID, err)
	}
	if caller == nil || (caller.Role != roster.RoleTeacher && caller.Role != roster.RoleAdmin) {
		return PurgeResult{}, ErrPermissionDenied
	}

	if err := s.provider.DeleteUser(ctx, targetUID); err != nil {
		return PurgeResult{}, fmt.Errorf("delete identity %s: %w", targetUID, err)
	}
	if err := s.roster.Delete(ctx, targetUID); err != nil {
		return PurgeResult{}, fmt.Errorf("delete roster entry %s: %w", targetUID, err)
	}
	deleted, err := s.attendance.DeleteByStudent(ctx, targetUID)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("delete attendance of %s: %w", targetUID, err)
	}

	s.log.WithFields(logrus.Fields{
		"caller_uid":      callerUID,
		"target_uid":      targetUID,
		"records_deleted": deleted,
	}).Info("account purged")
	return PurgeResult{TargetUID: targetUID, RecordsDeleted: deleted}, nil
}
