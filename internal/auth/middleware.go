package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/Lcs002/nsp-crisma-app/internal/observability"
)

// Mode selects which trust model protects a route group.
type Mode string

// Authentication modes.
const (
	// ModeNone leaves the route unauthenticated.
	ModeNone Mode = "none"
	// ModeSession requires a valid session cookie.
	ModeSession Mode = "session"
	// ModeBearer requires a federated bearer token with the admin role.
	ModeBearer Mode = "bearer"
)

// Authenticator bundles both trust models behind a single middleware entry
// point.
type Authenticator struct {
	sessions *SessionAuthenticator
	bearer   *BearerAuthenticator
	logger   observability.Logger
}

// NewAuthenticator creates the combined authenticator.
func NewAuthenticator(sessions *SessionAuthenticator, bearer *BearerAuthenticator, logger observability.Logger) *Authenticator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Authenticator{
		sessions: sessions,
		bearer:   bearer,
		logger:   logger,
	}
}

// Sessions returns the session authenticator for the login and logout
// handlers.
func (a *Authenticator) Sessions() *SessionAuthenticator {
	return a.sessions
}

// Middleware returns a gin middleware enforcing the given mode. On success
// the principal is attached to the request context; on failure the request
// is aborted with the failure's status and client message.
func (a *Authenticator) Middleware(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		if mode == ModeNone {
			c.Next()
			return
		}

		principal, err := a.authenticate(c, mode)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(ContextWithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context, mode Mode) (*Principal, error) {
	switch mode {
	case ModeSession:
		return a.sessions.Verify(c.Request)
	case ModeBearer:
		token, err := ExtractBearerToken(c.Request)
		if err != nil {
			return nil, err
		}
		return a.bearer.Verify(c.Request.Context(), token)
	default:
		return nil, Internal("unknown authentication mode", nil)
	}
}

// AbortWithError writes the failure response for an authentication error and
// aborts the request. Internal detail never reaches the client.
func AbortWithError(c *gin.Context, err error) {
	authErr := AsError(err)
	c.AbortWithStatusJSON(authErr.Status(), gin.H{"error": authErr.ClientMessage()})
}
