package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role value that grants access to admin-only routes.
// Comparison is case-sensitive; "Admin" or "ADMIN" do not qualify.
const RoleAdmin = "admin"

// SessionClaims is the payload of a self-issued session token. The subject is
// the username; iat and exp are UNIX timestamps carried by the registered
// claims.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// ExternalMetadata carries the application metadata embedded in a federated
// bearer token.
type ExternalMetadata struct {
	Role string `json:"role"`
}

// ExternalClaims is the payload of a federated bearer token. The issuer and
// subject are assigned by the external identity provider; the role lives
// under the metadata claim.
type ExternalClaims struct {
	jwt.RegisteredClaims

	SessionID string           `json:"sid,omitempty"`
	Metadata  ExternalMetadata `json:"metadata"`
}

// IsAdmin reports whether the claims carry the admin role.
func (c *ExternalClaims) IsAdmin() bool {
	return c.Metadata.Role == RoleAdmin
}
