package account

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"absensi/internal/identity"
	"absensi/internal/roster"
)

type fakeProvider struct {
	subjects map[string]string // token -> uid
	deleted  []string
}

func (f *fakeProvider) VerifyToken(_ context.Context, token string) (string, error) {
	uid, ok := f.subjects[token]
	if !ok {
		return "", fmt.Errorf("%w: unknown token", identity.ErrInvalidToken)
	}
	return uid, nil
}

func (f *fakeProvider) DeleteUser(_ context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	return nil
}

type fakeRoster struct {
	users   map[string]*roster.User
	deleted []string
}

func (f *fakeRoster) Get(_ context.Context, uid string) (*roster.User, error) {
	return f.users[uid], nil
}

func (f *fakeRoster) Delete(_ context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	delete(f.users, uid)
	return nil
}

type fakeAttendance struct {
	byStudent  map[string]int
	deletedFor []string
	err        error
}

func (f *fakeAttendance) DeleteByStudent(_ context.Context, studentID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.deletedFor = append(f.deletedFor, studentID)
	n := f.byStudent[studentID]
	delete(f.byStudent, studentID)
	return n, nil
}

func newFixture() (*Service, *fakeProvider, *fakeRoster, *fakeAttendance) {
	provider := &fakeProvider{subjects: map[string]string{
		"admin-token":   "admin-1",
		"teacher-token": "teacher-1",
		"student-token": "student-a",
	}}
	rosterStore := &fakeRoster{users: map[string]*roster.User{
		"admin-1":   {UID: "admin-1", Role: roster.RoleAdmin, Name: "Admin"},
		"teacher-1": {UID: "teacher-1", Role: roster.RoleTeacher, Name: "Teacher"},
		"student-a": {UID: "student-a", Role: roster.RoleStudent, Name: "A", Class: "10A"},
		"student-b": {UID: "student-b", Role: roster.RoleStudent, Name: "B", Class: "10A"},
	}}
	att := &fakeAttendance{byStudent: map[string]int{"student-b": 2, "student-a": 1}}
	return NewService(provider, rosterStore, att, nil), provider, rosterStore, att
}

func TestPurgeCascade(t *testing.T) {
	svc, provider, rosterStore, att := newFixture()

	res, err := svc.Purge(context.Background(), "admin-token", "student-b")
	require.NoError(t, err)

	assert.Equal(t, "student-b", res.TargetUID)
	assert.Equal(t, 2, res.RecordsDeleted)
	assert.Equal(t, []string{"student-b"}, provider.deleted)
	assert.Equal(t, []string{"student-b"}, rosterStore.deleted)
	assert.Equal(t, []string{"student-b"}, att.deletedFor)

	// Other students' records are untouched.
	assert.Equal(t, 1, att.byStudent["student-a"])
}

func TestPurgeTeacherMayCall(t *testing.T) {
	svc, _, _, _ := newFixture()

	_, err := svc.Purge(context.Background(), "teacher-token", "student-a")
	require.NoError(t, err)
}

func TestPurgeMissingToken(t *testing.T) {
	svc, provider, rosterStore, att := newFixture()

	_, err := svc.Purge(context.Background(), "", "student-b")
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, provider.deleted)
	assert.Empty(t, rosterStore.deleted)
	assert.Empty(t, att.deletedFor)
}

func TestPurgeInvalidToken(t *testing.T) {
	svc, provider, _, _ := newFixture()

	_, err := svc.Purge(context.Background(), "garbage", "student-b")
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, provider.deleted)
}

func TestPurgeMissingTarget(t *testing.T) {
	svc, provider, _, _ := newFixture()

	_, err := svc.Purge(context.Background(), "admin-token", "")
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, provider.deleted)
}

func TestPurgeStudentCallerDenied(t *testing.T) {
	svc, provider, _, _ := newFixture()

	_, err := svc.Purge(context.Background(), "student-token", "student-b")
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, provider.deleted)
}

func TestPurgeUnknownCallerDenied(t *testing.T) {
	svc, provider, rosterStore, _ := newFixture()
	delete(rosterStore.users, "admin-1")

	_, err := svc.Purge(context.Background(), "admin-token", "student-b")
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, provider.deleted)
}

func TestPurgeStoreFailureIsInternal(t *testing.T) {
	svc, _, _, att := newFixture()
	att.err = errors.New("store down")

	_, err := svc.Purge(context.Background(), "admin-token", "student-b")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthenticated))
	assert.False(t, errors.Is(err, ErrInvalidArgument))
	assert.False(t, errors.Is(err, ErrPermissionDenied))
}
