package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "absensi-test"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("student-a", "student", testIssuer, testKey, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := Parse(pair.AccessToken, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, "student-a", claims.Subject)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("student-a", "student", testIssuer, testKey, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "other-key", testIssuer)
	assert.Error(t, err)
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	pair, err := Issue("student-a", "student", "someone-else", testKey, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, testKey, testIssuer)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	pair, err := Issue("student-a", "student", testIssuer, testKey, -time.Minute, -time.Minute)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, testKey, testIssuer)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-token", testKey, testIssuer)
	assert.Error(t, err)
}
