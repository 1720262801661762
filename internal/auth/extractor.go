package auth

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// ExtractBearerToken reads the bearer token from the Authorization header.
// The prefix match is case-sensitive. A missing header or a header without
// the Bearer prefix returns ErrMissingToken.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingToken
	}
	token := header[len(bearerPrefix):]
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
