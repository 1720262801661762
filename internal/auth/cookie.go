package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "crisma_auth_token"

// SessionCookieCodec builds and reads the session cookie.
type SessionCookieCodec struct {
	secure bool
}

// NewSessionCookieCodec creates a cookie codec. secure controls the Secure
// attribute and should only be disabled for local plain-HTTP development.
func NewSessionCookieCodec(secure bool) *SessionCookieCodec {
	return &SessionCookieCodec{secure: secure}
}

// Build returns the login cookie carrying the signed session token.
func (c *SessionCookieCodec) Build(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Expired returns the logout cookie: same name and attributes, empty value,
// expiry at the UNIX epoch so the browser discards it immediately.
func (c *SessionCookieCodec) Expired() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Extract reads the session token from the request cookie. A missing cookie
// returns ErrMissingToken.
func (c *SessionCookieCodec) Extract(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrMissingToken
	}
	return cookie.Value, nil
}
