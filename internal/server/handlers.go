package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lcs002/nsp-crisma-app/internal/auth"
	"github.com/Lcs002/nsp-crisma-app/internal/observability"
)

// Handlers implements the API route handlers.
type Handlers struct {
	auth   *auth.Authenticator
	logger observability.Logger
}

// NewHandlers creates the route handlers.
func NewHandlers(authenticator *auth.Authenticator, logger observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handlers{auth: authenticator, logger: logger}
}

// loginRequest is the login request body.
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and sets the session cookie. A body that does
// not bind and a failed credential check both come back as the same
// unauthorized response.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		auth.AbortWithError(c, auth.ErrInvalidCredentials)
		return
	}

	principal, cookie, err := h.auth.Sessions().Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logAuthFailure(c, err)
		auth.AbortWithError(c, err)
		return
	}

	http.SetCookie(c.Writer, cookie)
	c.JSON(http.StatusOK, gin.H{"username": principal.ID})
}

// Logout clears the session cookie. Always succeeds; there is no server
// state to tear down.
func (h *Handlers) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, h.auth.Sessions().Logout())
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

// Me returns the authenticated session identity.
func (h *Handlers) Me(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c.Request.Context())
	if !ok {
		auth.AbortWithError(c, auth.Internal("no principal in context", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": principal.ID})
}

// AdminPing is a minimal admin-gated endpoint confirming bearer
// authorization.
func (h *Handlers) AdminPing(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c.Request.Context())
	if !ok {
		auth.AbortWithError(c, auth.Internal("no principal in context", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"subject": principal.ID,
	})
}

// logAuthFailure records the failure server-side with its full cause. The
// client response carries only the generic message.
func (h *Handlers) logAuthFailure(c *gin.Context, err error) {
	authErr := auth.AsError(err)
	if authErr.Kind == auth.KindInternal {
		h.logger.Error("request failed",
			observability.String("path", c.Request.URL.Path),
			observability.Error(err),
		)
		return
	}
	h.logger.Debug("request rejected",
		observability.String("path", c.Request.URL.Path),
		observability.Error(err),
	)
}
