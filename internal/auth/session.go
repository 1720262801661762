package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Lcs002/nsp-crisma-app/internal/observability"
	"github.com/Lcs002/nsp-crisma-app/internal/store"
)

// SessionAuthenticator implements cookie-based session authentication:
// username/password login issuing a signed session cookie, stateless logout,
// and per-request session verification.
type SessionAuthenticator struct {
	store    store.Store
	verifier PasswordVerifier
	tokens   *SessionTokenCodec
	cookies  *SessionCookieCodec
	logger   observability.Logger
	metrics  *Metrics
}

// SessionOption configures a SessionAuthenticator.
type SessionOption func(*SessionAuthenticator)

// WithSessionLogger sets the logger.
func WithSessionLogger(logger observability.Logger) SessionOption {
	return func(a *SessionAuthenticator) {
		a.logger = logger
	}
}

// WithSessionMetrics sets the metrics.
func WithSessionMetrics(m *Metrics) SessionOption {
	return func(a *SessionAuthenticator) {
		a.metrics = m
	}
}

// NewSessionAuthenticator creates a session authenticator.
func NewSessionAuthenticator(s store.Store, tokens *SessionTokenCodec, cookies *SessionCookieCodec, opts ...SessionOption) *SessionAuthenticator {
	a := &SessionAuthenticator{
		store:    s,
		verifier: NewBcryptVerifier(),
		tokens:   tokens,
		cookies:  cookies,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login verifies the credentials and returns the principal together with
// the session cookie to set. An unknown username and a wrong password both
// return ErrInvalidCredentials; nothing in the response distinguishes them.
func (a *SessionAuthenticator) Login(ctx context.Context, username, password string) (*Principal, *http.Cookie, error) {
	start := time.Now()

	principal, cookie, err := a.login(ctx, username, password)
	if a.metrics != nil {
		a.metrics.RecordLogin(err == nil, time.Since(start))
	}
	return principal, cookie, err
}

func (a *SessionAuthenticator) login(ctx context.Context, username, password string) (*Principal, *http.Cookie, error) {
	creds, err := a.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Info("login rejected", observability.String("username", username))
			return nil, nil, ErrInvalidCredentials
		}
		a.logger.Error("credential lookup failed",
			observability.String("username", username),
			observability.Error(err),
		)
		return nil, nil, Internal("credential lookup failed", err)
	}

	if err := a.verifier.Verify(creds.PasswordHash, password); err != nil {
		a.logger.Info("login rejected", observability.String("username", username))
		return nil, nil, ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(username)
	if err != nil {
		a.logger.Error("session token issue failed",
			observability.String("username", username),
			observability.Error(err),
		)
		return nil, nil, AsError(err)
	}

	a.logger.Info("login succeeded", observability.String("username", username))
	return &Principal{ID: username}, a.cookies.Build(token), nil
}

// Logout returns the expired session cookie. No server-side state exists for
// sessions, so logout is purely a client-side discard; tokens issued earlier
// remain valid until they expire.
func (a *SessionAuthenticator) Logout() *http.Cookie {
	return a.cookies.Expired()
}

// Verify authenticates a request from its session cookie and returns the
// principal. Missing cookie maps to a missing-token error; any decode or
// validation failure maps to an invalid-token error.
func (a *SessionAuthenticator) Verify(r *http.Request) (*Principal, error) {
	start := time.Now()

	principal, err := a.verify(r)
	if a.metrics != nil {
		a.metrics.RecordVerify("session", err == nil, time.Since(start))
	}
	return principal, err
}

func (a *SessionAuthenticator) verify(r *http.Request) (*Principal, error) {
	token, err := a.cookies.Extract(r)
	if err != nil {
		return nil, err
	}

	claims, err := a.tokens.Verify(token)
	if err != nil {
		a.logger.Debug("session token rejected", observability.Error(err))
		return nil, err
	}

	return &Principal{ID: claims.Subject}, nil
}
