// Package config defines and loads the crisma API configuration.
package config

import (
	"fmt"
	"time"

	"github.com/Lcs002/nsp-crisma-app/internal/observability"
	"github.com/Lcs002/nsp-crisma-app/internal/store"
)

// Config is the top-level configuration for the crisma API.
type Config struct {
	Server  ServerConfig            `yaml:"server"`
	Auth    AuthConfig              `yaml:"auth"`
	Users   UsersConfig             `yaml:"users"`
	Metrics MetricsConfig           `yaml:"metrics"`
	Log     observability.LogConfig `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// CookieSecure controls the Secure attribute on the session cookie.
	// Disable only for local plain-HTTP development.
	CookieSecure *bool `yaml:"cookieSecure"`
}

// AuthConfig configures both trust models.
type AuthConfig struct {
	// SessionSecret signs self-issued session tokens. Usually injected via
	// ${JWT_SECRET} in the config file.
	SessionSecret string `yaml:"sessionSecret"`
	// JWKSTimeout bounds a single key discovery request.
	JWKSTimeout time.Duration `yaml:"jwksTimeout"`
	// LoginRateLimit caps login attempts per client per second. Zero
	// disables rate limiting.
	LoginRateLimit float64 `yaml:"loginRateLimit"`
	// LoginRateBurst is the burst allowance for login attempts.
	LoginRateBurst int `yaml:"loginRateBurst"`
}

// UsersConfig selects the credential store backend. Exactly one of File or
// Redis must be set.
type UsersConfig struct {
	// File is a YAML file of credentials, watched for changes.
	File string `yaml:"file"`
	// Redis reads credentials from a Redis instance.
	Redis *store.RedisConfig `yaml:"redis"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// UsersFile is the on-disk credential list format.
type UsersFile struct {
	Users []store.Credentials `yaml:"users"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	secure := true
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CookieSecure:    &secure,
		},
		Auth: AuthConfig{
			JWKSTimeout:    5 * time.Second,
			LoginRateLimit: 5,
			LoginRateBurst: 10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Log: observability.LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Validate checks the configuration for missing or contradictory settings.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must be set")
	}
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("auth.sessionSecret must be set")
	}
	if c.Users.File == "" && c.Users.Redis == nil {
		return fmt.Errorf("users: either file or redis must be configured")
	}
	if c.Users.File != "" && c.Users.Redis != nil {
		return fmt.Errorf("users: file and redis are mutually exclusive")
	}
	if c.Auth.LoginRateLimit < 0 {
		return fmt.Errorf("auth.loginRateLimit must not be negative")
	}
	return nil
}

// SecureCookies reports whether the session cookie carries the Secure
// attribute, defaulting to true when unset.
func (c *ServerConfig) SecureCookies() bool {
	if c.CookieSecure == nil {
		return true
	}
	return *c.CookieSecure
}
