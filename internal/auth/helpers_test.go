package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

// testKey is an RSA key pair with its public half rendered as a JWK, used to
// mint and verify bearer tokens in tests.
type testKey struct {
	kid     string
	private *rsa.PrivateKey
	jwk     JWK
}

func newTestKey(t *testing.T, kid string) *testKey {
	t.Helper()

	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := jwk.FromRaw(&private.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, kid))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, "RS256"))
	require.NoError(t, pub.Set(jwk.KeyUsageKey, "sig"))

	raw, err := json.Marshal(pub)
	require.NoError(t, err)

	var key JWK
	require.NoError(t, json.Unmarshal(raw, &key))

	return &testKey{kid: kid, private: private, jwk: key}
}

func (k *testKey) keySet() *JWKSet {
	return &JWKSet{Keys: []JWK{k.jwk}}
}

// sign mints an RS256 token with the key's kid header.
func (k *testKey) sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = k.kid
	signed, err := token.SignedString(k.private)
	require.NoError(t, err)
	return signed
}

func externalClaims(issuer, subject, role string, expiresAt time.Time) *ExternalClaims {
	return &ExternalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Metadata: ExternalMetadata{Role: role},
	}
}

// countingFetcher serves canned key sets and counts fetches per issuer.
type countingFetcher struct {
	sets    map[string]*JWKSet
	err     error
	fetches atomic.Int64
}

func (f *countingFetcher) FetchKeySet(_ context.Context, issuer string) (*JWKSet, error) {
	f.fetches.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	set, ok := f.sets[issuer]
	if !ok {
		return nil, fmt.Errorf("no key set for issuer %s", issuer)
	}
	return set, nil
}

func (f *countingFetcher) count() int64 {
	return f.fetches.Load()
}
