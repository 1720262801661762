// Package store provides credential storage backends for the crisma API.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no credentials exist for a username.
var ErrNotFound = errors.New("credentials not found")

// Credentials is a stored username and password hash.
type Credentials struct {
	Username     string `json:"username" yaml:"username"`
	PasswordHash string `json:"password_hash" yaml:"password_hash"`
}

// Store looks up stored credentials by username.
type Store interface {
	// Get returns the credentials for the username, or ErrNotFound.
	Get(ctx context.Context, username string) (*Credentials, error)
}
