// Package auth implements the two trust models of the crisma API:
// self-issued session cookies for first-party browser clients, and federated
// bearer tokens verified against keys discovered from the token's issuer for
// admin routes.
package auth
