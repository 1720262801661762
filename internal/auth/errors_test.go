package auth

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    *Error
		status int
	}{
		{"missing token", ErrMissingToken, http.StatusUnauthorized},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"invalid token", ErrInvalidToken, http.StatusUnauthorized},
		{"not an admin", ErrNotAnAdmin, http.StatusForbidden},
		{"internal", Internal("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.status, tt.err.Status())
		})
	}
}

func TestErrorIs(t *testing.T) {
	t.Parallel()

	wrapped := Unauthorized(errors.New("signature is invalid"))
	assert.ErrorIs(t, wrapped, ErrInvalidToken)
	assert.NotErrorIs(t, wrapped, ErrMissingToken)
	assert.NotErrorIs(t, wrapped, ErrNotAnAdmin)
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("token is expired")
	wrapped := Unauthorized(cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestErrorClientMessage(t *testing.T) {
	t.Parallel()

	t.Run("internal detail is masked", func(t *testing.T) {
		t.Parallel()

		err := Internal("redis connection refused at 10.0.0.5:6379", errors.New("dial tcp: connection refused"))
		assert.Equal(t, "internal server error", err.ClientMessage())
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("client facing kinds keep their message", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "missing authorization token", ErrMissingToken.ClientMessage())
		assert.Equal(t, "invalid username or password", ErrInvalidCredentials.ClientMessage())
		assert.Equal(t, "invalid authorization token", ErrInvalidToken.ClientMessage())
		assert.Equal(t, "admin role required", ErrNotAnAdmin.ClientMessage())
	})
}

func TestAsError(t *testing.T) {
	t.Parallel()

	t.Run("typed error passes through", func(t *testing.T) {
		t.Parallel()

		err := AsError(ErrNotAnAdmin)
		assert.Equal(t, KindNotAnAdmin, err.Kind)
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		t.Parallel()

		err := AsError(errors.New("surprise"))
		require.NotNil(t, err)
		assert.Equal(t, KindInternal, err.Kind)
		assert.Equal(t, http.StatusInternalServerError, err.Status())
	})
}
