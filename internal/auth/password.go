package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(hash, password string) error
}

// BcryptVerifier verifies passwords against bcrypt hashes.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a bcrypt password verifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Verify compares the bcrypt hash with the plaintext password. A mismatch or
// an unparsable hash both return ErrInvalidCredentials so callers cannot tell
// them apart.
func (v *BcryptVerifier) Verify(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword generates a bcrypt hash at the default cost. Used by the hash
// utility to provision credentials.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
