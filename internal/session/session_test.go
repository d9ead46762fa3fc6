package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Hour)
	require.NoError(t, err)
	return s
}

func TestNewSessionIsAnonymousAndClean(t *testing.T) {
	s := newTestSession(t)

	assert.NotEmpty(t, s.ID)
	assert.False(t, s.IsLoggedIn)
	assert.Empty(t, s.UserID)
	assert.False(t, s.Dirty())
	assert.Equal(t, s.CreatedAt.Add(time.Hour), s.ExpiresAt)
}

func TestSignInRotatesID(t *testing.T) {
	s := newTestSession(t)
	original := s.ID

	require.NoError(t, s.SignIn("u-1"))

	assert.True(t, s.IsLoggedIn)
	assert.Equal(t, "u-1", s.UserID)
	assert.NotEqual(t, original, s.ID)
	assert.Equal(t, original, s.PreviousID())
	assert.True(t, s.Dirty())
}

func TestSignOutIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SignIn("u-1"))

	s.SignOut()
	s.SignOut()

	assert.False(t, s.IsLoggedIn)
	assert.Empty(t, s.UserID)
	assert.True(t, s.Destroyed())
}

func TestFlashIsOneShot(t *testing.T) {
	s := newTestSession(t)
	s.AddFlash("error", "Invalid email or password.")
	s.AddFlash("error", "second")

	assert.Equal(t, []string{"Invalid email or password.", "second"}, s.PopFlash("error"))
	assert.Nil(t, s.PopFlash("error"))
}

func TestEnsureCSRFSecretCreatesOnce(t *testing.T) {
	s := newTestSession(t)
	calls := 0
	gen := func() (string, error) {
		calls++
		return "secret", nil
	}

	first, err := s.EnsureCSRFSecret(gen)
	require.NoError(t, err)
	second, err := s.EnsureCSRFSecret(gen)
	require.NoError(t, err)

	assert.Equal(t, "secret", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCommitSkipsCleanSessions(t *testing.T) {
	store := NewMemoryStore()
	s := newTestSession(t)

	require.NoError(t, Commit(context.Background(), store, s))
	assert.Equal(t, 0, store.Len())
}

func TestCommitDropsPreRotationRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC) }
	s := newTestSession(t)
	s.AddFlash("info", "hi")
	require.NoError(t, Commit(ctx, store, s))
	anonID := s.ID

	require.NoError(t, s.SignIn("u-1"))
	require.NoError(t, Commit(ctx, store, s))

	old, err := store.Load(ctx, anonID)
	require.NoError(t, err)
	assert.Nil(t, old)

	current, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.True(t, current.IsLoggedIn)
	assert.False(t, s.Dirty())
}

func TestCommitDestroysSignedOutSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC) }
	s := newTestSession(t)
	require.NoError(t, s.SignIn("u-1"))
	require.NoError(t, Commit(ctx, store, s))

	s.SignOut()
	require.NoError(t, Commit(ctx, store, s))

	assert.Equal(t, 0, store.Len())
}
