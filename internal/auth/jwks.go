package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Lcs002/nsp-crisma-app/internal/observability"
)

// jwksPath is appended to an issuer URL to form its key discovery endpoint.
const jwksPath = "/.well-known/jwks.json"

// JWKSet is a JSON Web Key Set as served by an issuer's discovery endpoint.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// JWK is a single JSON Web Key. Only RSA signing keys are used; other key
// types are carried through unmarshalling and rejected at conversion.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use,omitempty"`

	// RSA public key components, base64url without padding.
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`
}

// RSAPublicKey converts the JWK to an RSA public key. The modulus and
// exponent are big-endian byte strings.
func (k *JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("key type is not RSA: %s", k.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	n := new(big.Int).SetBytes(nBytes)

	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}

	return &rsa.PublicKey{N: n, E: e}, nil
}

// Key returns the key matching the key ID, or nil when absent.
func (s *JWKSet) Key(kid string) *JWK {
	for i := range s.Keys {
		if s.Keys[i].Kid == kid {
			return &s.Keys[i]
		}
	}
	return nil
}

// Fetcher retrieves the key set published by an issuer.
type Fetcher interface {
	FetchKeySet(ctx context.Context, issuer string) (*JWKSet, error)
}

// HTTPFetcher fetches key sets over HTTP from the issuer's well-known
// discovery endpoint.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with a sensible request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// NewHTTPFetcherWithClient creates a fetcher using the given HTTP client.
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	if client == nil {
		return NewHTTPFetcher()
	}
	return &HTTPFetcher{client: client}
}

// FetchKeySet retrieves {issuer}/.well-known/jwks.json and parses it.
func (f *HTTPFetcher) FetchKeySet(ctx context.Context, issuer string) (*JWKSet, error) {
	url := strings.TrimSuffix(issuer, "/") + jwksPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("JWKS endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	var set JWKSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	return &set, nil
}

// KeySetCache caches key sets per issuer for the lifetime of the process.
// Entries are never invalidated; key rotation at an issuer requires a
// restart to pick up. The lock guards only map access and is never held
// across a fetch, so a slow issuer does not block lookups for others.
// Concurrent cold fetches for the same issuer may race; each stores a valid
// result and the last write wins.
type KeySetCache struct {
	fetcher Fetcher
	logger  observability.Logger
	metrics *Metrics

	mu   sync.RWMutex
	sets map[string]*JWKSet
}

// KeySetCacheOption configures a KeySetCache.
type KeySetCacheOption func(*KeySetCache)

// WithKeySetLogger sets the cache logger.
func WithKeySetLogger(logger observability.Logger) KeySetCacheOption {
	return func(c *KeySetCache) {
		c.logger = logger
	}
}

// WithKeySetMetrics sets the cache metrics.
func WithKeySetMetrics(m *Metrics) KeySetCacheOption {
	return func(c *KeySetCache) {
		c.metrics = m
	}
}

// NewKeySetCache creates a cache backed by the given fetcher.
func NewKeySetCache(fetcher Fetcher, opts ...KeySetCacheOption) *KeySetCache {
	c := &KeySetCache{
		fetcher: fetcher,
		logger:  observability.NopLogger(),
		sets:    make(map[string]*JWKSet),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KeySet returns the cached key set for the issuer, fetching it on first
// use.
func (c *KeySetCache) KeySet(ctx context.Context, issuer string) (*JWKSet, error) {
	c.mu.RLock()
	set, ok := c.sets[issuer]
	c.mu.RUnlock()

	if ok {
		if c.metrics != nil {
			c.metrics.RecordKeySetLookup(issuer, true)
		}
		return set, nil
	}

	if c.metrics != nil {
		c.metrics.RecordKeySetLookup(issuer, false)
	}

	start := time.Now()
	fetched, err := c.fetcher.FetchKeySet(ctx, issuer)
	if c.metrics != nil {
		c.metrics.RecordKeySetFetch(issuer, err == nil, time.Since(start))
	}
	if err != nil {
		c.logger.Error("JWKS fetch failed",
			observability.String("issuer", issuer),
			observability.Error(err),
		)
		return nil, fmt.Errorf("failed to fetch JWKS for issuer %s: %w", issuer, err)
	}

	c.mu.Lock()
	c.sets[issuer] = fetched
	c.mu.Unlock()

	c.logger.Info("JWKS cached",
		observability.String("issuer", issuer),
		observability.Int("keys", len(fetched.Keys)),
	)

	return fetched, nil
}
