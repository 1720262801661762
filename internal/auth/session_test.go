package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lcs002/nsp-crisma-app/internal/store"
)

func newSessionFixture(t *testing.T) *SessionAuthenticator {
	t.Helper()

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	users := store.NewMemoryStore([]store.Credentials{
		{Username: "alice", PasswordHash: hash},
	})
	return NewSessionAuthenticator(
		users,
		NewSessionTokenCodec([]byte("test-secret")),
		NewSessionCookieCodec(true),
	)
}

func TestSessionLogin(t *testing.T) {
	t.Parallel()

	auth := newSessionFixture(t)

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		principal, cookie, err := auth.Login(context.Background(), "alice", "correct horse")
		require.NoError(t, err)

		assert.Equal(t, "alice", principal.ID)
		assert.Equal(t, SessionCookieName, cookie.Name)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		_, _, err := auth.Login(context.Background(), "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		_, _, err := auth.Login(context.Background(), "mallory", "correct horse")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		t.Parallel()

		_, _, errUnknown := auth.Login(context.Background(), "mallory", "anything")
		_, _, errWrong := auth.Login(context.Background(), "alice", "wrong")

		require.Error(t, errUnknown)
		require.Error(t, errWrong)

		unknownErr := AsError(errUnknown)
		wrongErr := AsError(errWrong)
		assert.Equal(t, unknownErr.Status(), wrongErr.Status())
		assert.Equal(t, unknownErr.ClientMessage(), wrongErr.ClientMessage())
		assert.Equal(t, "invalid username or password", wrongErr.ClientMessage())
	})
}

func TestSessionVerify(t *testing.T) {
	t.Parallel()

	auth := newSessionFixture(t)

	t.Run("cookie from login verifies", func(t *testing.T) {
		t.Parallel()

		_, cookie, err := auth.Login(context.Background(), "alice", "correct horse")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(cookie)

		principal, err := auth.Verify(r)
		require.NoError(t, err)
		assert.Equal(t, "alice", principal.ID)
		assert.False(t, principal.IsAdmin())
	})

	t.Run("missing cookie", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)

		_, err := auth.Verify(r)
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("garbage cookie", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})

		_, err := auth.Verify(r)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired session", func(t *testing.T) {
		t.Parallel()

		past := time.Now().Add(-SessionTokenTTL - time.Hour)
		expiredCodec := NewSessionTokenCodec([]byte("test-secret"), WithSessionClock(func() time.Time {
			return past
		}))
		token, err := expiredCodec.Issue("alice")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

		_, err = auth.Verify(r)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestSessionLogout(t *testing.T) {
	t.Parallel()

	auth := newSessionFixture(t)
	cookie := auth.Logout()

	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()))
}
