// SPDX-License-Identifier: BSD-3-Clause

// Package config loads client configuration with precedence
// environment > file > defaults.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Config is the full client configuration.
type Config struct {
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// HTTPTimeout bounds every request made by a client.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	RateLimit   RateLimit     `yaml:"rate_limit"`
	TokenStore  TokenStore    `yaml:"token_store"`
	// APIs lists the remote APIs clients are built for.
	APIs []API `yaml:"apis"`
}

// API describes one remote API.
type API struct {
	Name string `yaml:"name"`
	// BaseURL is the API root; its bare form serves the directory
	// document.
	BaseURL string `yaml:"base_url"`
	// AuthName is the logical directory name of the auth endpoint.
	AuthName string `yaml:"auth_name"`
}

// RateLimit throttles outgoing requests. Zero RPS disables limiting.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// TokenStore selects the persistent token backend. Path picks a file
// store, RedisAddr a redis store; both empty keeps tokens in memory.
type TokenStore struct {
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:    "info",
		HTTPTimeout: 30 * time.Second,
		RateLimit:   RateLimit{RPS: 0, Burst: 1},
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: invalid log level %q: %w", c.LogLevel, err)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("config: rate_limit.rps must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("config: rate_limit.burst must be at least 1 when rps is set")
	}
	if c.TokenStore.Path != "" && c.TokenStore.RedisAddr != "" {
		return fmt.Errorf("config: token_store.path and token_store.redis_addr are mutually exclusive")
	}

	seen := make(map[string]bool, len(c.APIs))
	for i, a := range c.APIs {
		if a.Name == "" {
			return fmt.Errorf("config: apis[%d] has no name", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("config: duplicate api name %q", a.Name)
		}
		seen[a.Name] = true
		u, err := url.Parse(a.BaseURL)
		if err != nil || u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("config: api %q has invalid base_url %q", a.Name, a.BaseURL)
		}
	}
	return nil
}

// Find returns the API entry with the given name.
func (c Config) Find(name string) (API, bool) {
	for _, a := range c.APIs {
		if a.Name == name {
			return a, true
		}
	}
	return API{}, false
}
