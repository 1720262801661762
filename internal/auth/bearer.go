package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Lcs002/nsp-crisma-app/internal/observability"
)

// BearerAuthenticator verifies federated RS256 bearer tokens against keys
// discovered from the token's own issuer. The issuer is read from the
// unverified payload to locate the key set; the subsequent signature check
// binds the token to that issuer's published keys. No issuer allow-list is
// applied.
type BearerAuthenticator struct {
	keys    *KeySetCache
	logger  observability.Logger
	metrics *Metrics
	now     func() time.Time
}

// BearerOption configures a BearerAuthenticator.
type BearerOption func(*BearerAuthenticator)

// WithBearerLogger sets the logger.
func WithBearerLogger(logger observability.Logger) BearerOption {
	return func(a *BearerAuthenticator) {
		a.logger = logger
	}
}

// WithBearerMetrics sets the metrics.
func WithBearerMetrics(m *Metrics) BearerOption {
	return func(a *BearerAuthenticator) {
		a.metrics = m
	}
}

// WithBearerClock overrides the validation clock. Used in tests.
func WithBearerClock(now func() time.Time) BearerOption {
	return func(a *BearerAuthenticator) {
		a.now = now
	}
}

// NewBearerAuthenticator creates a bearer authenticator backed by the key
// set cache.
func NewBearerAuthenticator(keys *KeySetCache, opts ...BearerOption) *BearerAuthenticator {
	a := &BearerAuthenticator{
		keys:   keys,
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Verify validates the bearer token and checks the admin role. The token
// structure is inspected before any network activity: a token that does not
// have three segments, a key ID, and an issuer is rejected without touching
// the key set cache.
func (a *BearerAuthenticator) Verify(ctx context.Context, tokenString string) (*Principal, error) {
	start := time.Now()

	principal, err := a.verify(ctx, tokenString)
	if a.metrics != nil {
		a.metrics.RecordVerify("bearer", err == nil, time.Since(start))
	}
	return principal, err
}

func (a *BearerAuthenticator) verify(ctx context.Context, tokenString string) (*Principal, error) {
	segments := strings.Split(tokenString, ".")
	if len(segments) != 3 {
		return nil, Unauthorized(fmt.Errorf("token has %d segments, expected 3", len(segments)))
	}

	kid, err := peekKeyID(segments[0])
	if err != nil {
		return nil, Unauthorized(err)
	}

	issuer, err := peekIssuer(segments[1])
	if err != nil {
		return nil, Unauthorized(err)
	}

	set, err := a.keys.KeySet(ctx, issuer)
	if err != nil {
		return nil, Internal("key set unavailable", err)
	}

	key := set.Key(kid)
	if key == nil {
		a.logger.Debug("no key matching token key ID",
			observability.String("issuer", issuer),
			observability.String("kid", kid),
		)
		return nil, Unauthorized(fmt.Errorf("key %q not found in issuer key set", kid))
	}

	publicKey, err := key.RSAPublicKey()
	if err != nil {
		a.logger.Error("malformed JWK in issuer key set",
			observability.String("issuer", issuer),
			observability.String("kid", kid),
			observability.Error(err),
		)
		return nil, Internal("malformed key in issuer key set", err)
	}

	claims := &ExternalClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if _, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}); err != nil {
		a.logger.Debug("bearer token rejected",
			observability.String("issuer", issuer),
			observability.Error(err),
		)
		return nil, Unauthorized(err)
	}

	if !claims.IsAdmin() {
		a.logger.Warn("bearer token lacks admin role",
			observability.String("subject", claims.Subject),
			observability.String("role", claims.Metadata.Role),
		)
		return nil, ErrNotAnAdmin
	}

	return &Principal{
		ID:        claims.Subject,
		Role:      claims.Metadata.Role,
		SessionID: claims.SessionID,
	}, nil
}

// peekKeyID reads the kid from the unverified header segment.
func peekKeyID(segment string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return "", fmt.Errorf("failed to decode token header: %w", err)
	}

	var header struct {
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return "", fmt.Errorf("failed to parse token header: %w", err)
	}
	if header.Kid == "" {
		return "", fmt.Errorf("token header has no key ID")
	}
	return header.Kid, nil
}

// peekIssuer reads the iss claim from the unverified payload segment.
func peekIssuer(segment string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return "", fmt.Errorf("failed to decode token payload: %w", err)
	}

	var payload struct {
		Issuer string `json:"iss"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("failed to parse token payload: %w", err)
	}
	if payload.Issuer == "" {
		return "", fmt.Errorf("token payload has no issuer")
	}
	return payload.Issuer, nil
}
