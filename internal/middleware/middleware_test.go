package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lcs002/nsp-crisma-app/internal/observability"
)

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates id when absent", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(RequestID())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("passes through incoming id", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(RequestID())
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "incoming-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, "incoming-id", w.Header().Get(RequestIDHeader))
	})

	t.Run("id reaches the request context", func(t *testing.T) {
		t.Parallel()

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(RequestID())
		router.GET("/", func(c *gin.Context) {
			c.String(http.StatusOK, observability.RequestIDFromContext(c.Request.Context()))
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "ctx-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, "ctx-id", w.Body.String())
	})
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(observability.NopLogger()))
	router.GET("/panic", func(_ *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	t.Run("allows within burst", func(t *testing.T) {
		t.Parallel()

		rl := NewRateLimiter(1, 3)
		defer rl.Stop()

		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow("10.0.0.1"))
		}
		assert.False(t, rl.Allow("10.0.0.1"))
	})

	t.Run("clients are independent", func(t *testing.T) {
		t.Parallel()

		rl := NewRateLimiter(1, 1)
		defer rl.Stop()

		require.True(t, rl.Allow("10.0.0.1"))
		require.False(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.2"))
	})

	t.Run("middleware returns 429", func(t *testing.T) {
		t.Parallel()

		rl := NewRateLimiter(1, 1)
		defer rl.Stop()
		router := newTestRouter(rl.Middleware())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})

	t.Run("cleanup removes idle entries", func(t *testing.T) {
		t.Parallel()

		rl := NewRateLimiter(1, 1)
		defer rl.Stop()

		rl.Allow("10.0.0.1")
		rl.CleanupOldClients(time.Nanosecond)

		rl.mu.Lock()
		remaining := len(rl.clients)
		rl.mu.Unlock()
		assert.Zero(t, remaining)
	})
}
