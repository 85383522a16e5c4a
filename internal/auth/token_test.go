package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestOwnerFromToken(t *testing.T) {
	tok, err := IssueToken("alice", "s3cret", time.Hour, now)
	require.NoError(t, err)

	owner, err := OwnerFromToken(tok, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	_, err = OwnerFromToken(tok, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = OwnerFromToken("not.a.token", now)
	require.Error(t, err)
}

func TestOwnerFromToken_NoSubject(t *testing.T) {
	tok, err := IssueToken("", "s3cret", time.Hour, now)
	require.NoError(t, err)
	_, err = OwnerFromToken(tok, now)
	assert.ErrorIs(t, err, ErrNoSubject)
}

func TestVerifyToken(t *testing.T) {
	tok, err := IssueToken("bob", "right", time.Hour, time.Now())
	require.NoError(t, err)

	owner, err := VerifyToken(tok, "right")
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)

	_, err = VerifyToken(tok, "wrong")
	require.Error(t, err)

	old, err := IssueToken("bob", "right", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = VerifyToken(old, "right")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestResolveOwner(t *testing.T) {
	tok, err := IssueToken("carol", "k", time.Hour, now)
	require.NoError(t, err)

	owner, err := ResolveOwner("explicit", tok, now)
	require.NoError(t, err)
	assert.Equal(t, "explicit", owner)

	owner, err = ResolveOwner("", tok, now)
	require.NoError(t, err)
	assert.Equal(t, "carol", owner)

	_, err = ResolveOwner("", "", now)
	assert.ErrorIs(t, err, ErrNoCredentials)
}
