package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenTTL is the lifetime of a self-issued session token.
const SessionTokenTTL = 7 * 24 * time.Hour

// SessionTokenCodec signs and verifies self-issued HS256 session tokens.
type SessionTokenCodec struct {
	secret []byte
	now    func() time.Time
}

// SessionTokenOption configures a SessionTokenCodec.
type SessionTokenOption func(*SessionTokenCodec)

// WithSessionClock overrides the clock used for issuing and validating
// tokens. Used in tests.
func WithSessionClock(now func() time.Time) SessionTokenOption {
	return func(c *SessionTokenCodec) {
		c.now = now
	}
}

// NewSessionTokenCodec creates a codec signing with the given HMAC secret.
func NewSessionTokenCodec(secret []byte, opts ...SessionTokenOption) *SessionTokenCodec {
	c := &SessionTokenCodec{
		secret: secret,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue creates a signed session token for the subject. The expiry is exactly
// the session TTL past the issue time.
func (c *SessionTokenCodec) Issue(subject string) (string, error) {
	now := c.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", Internal("failed to sign session token", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims. Any
// failure, including expiry and a non-HMAC signing method, returns an
// invalid-token error.
func (c *SessionTokenCodec) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, Unauthorized(err)
	}
	return claims, nil
}
