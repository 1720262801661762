package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCookieBuild(t *testing.T) {
	t.Parallel()

	cookie := NewSessionCookieCodec(true).Build("token-value")

	assert.Equal(t, "crisma_auth_token", cookie.Name)
	assert.Equal(t, "token-value", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(7*24*time.Hour/time.Second), cookie.MaxAge)
}

func TestSessionCookieExpired(t *testing.T) {
	t.Parallel()

	cookie := NewSessionCookieCodec(true).Expired()

	assert.Equal(t, "crisma_auth_token", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, time.Unix(0, 0).UTC(), cookie.Expires.UTC())
	assert.True(t, cookie.Expires.Before(time.Now()))
	assert.True(t, cookie.HttpOnly)
}

func TestSessionCookieExtract(t *testing.T) {
	t.Parallel()

	codec := NewSessionCookieCodec(true)

	t.Run("present", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})

		token, err := codec.Extract(r)
		require.NoError(t, err)
		assert.Equal(t, "tok", token)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)

		_, err := codec.Extract(r)
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("empty value", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: ""})

		_, err := codec.Extract(r)
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}
