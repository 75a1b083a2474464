// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/quantmind/lux-go/internal/log"
)

// Environment keys. Every key overrides the corresponding file value.
const (
	EnvLogLevel    = "LUX_LOG_LEVEL"
	EnvHTTPTimeout = "LUX_HTTP_TIMEOUT"
	EnvRateRPS     = "LUX_RATE_RPS"
	EnvRateBurst   = "LUX_RATE_BURST"
	EnvTokenPath   = "LUX_TOKEN_PATH"
	EnvRedisAddr   = "LUX_REDIS_ADDR"
	EnvAPIName     = "LUX_API_NAME"
	EnvAPIURL      = "LUX_API_URL"
	EnvAuthName    = "LUX_AUTH_NAME"
)

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l := log.WithComponent("config")
		l.Warn().Str("key", key).Str("value", v).
			Msg("invalid duration in environment variable, using fallback")
		return fallback
	}
	return d
}

func envFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l := log.WithComponent("config")
		l.Warn().Str("key", key).Str("value", v).
			Msg("invalid float in environment variable, using fallback")
		return fallback
	}
	return f
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		l := log.WithComponent("config")
		l.Warn().Str("key", key).Str("value", v).
			Msg("invalid integer in environment variable, using fallback")
		return fallback
	}
	return i
}

// applyEnv overlays environment variables onto cfg. LUX_API_URL adds or
// replaces the entry named by LUX_API_NAME (default "default").
func applyEnv(cfg *Config) {
	cfg.LogLevel = envString(EnvLogLevel, cfg.LogLevel)
	cfg.HTTPTimeout = envDuration(EnvHTTPTimeout, cfg.HTTPTimeout)
	cfg.RateLimit.RPS = envFloat(EnvRateRPS, cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = envInt(EnvRateBurst, cfg.RateLimit.Burst)
	cfg.TokenStore.Path = envString(EnvTokenPath, cfg.TokenStore.Path)
	cfg.TokenStore.RedisAddr = envString(EnvRedisAddr, cfg.TokenStore.RedisAddr)

	if apiURL, ok := os.LookupEnv(EnvAPIURL); ok && apiURL != "" {
		name := envString(EnvAPIName, "default")
		entry := API{
			Name:     name,
			BaseURL:  apiURL,
			AuthName: envString(EnvAuthName, ""),
		}
		replaced := false
		for i, a := range cfg.APIs {
			if a.Name == name {
				cfg.APIs[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			cfg.APIs = append(cfg.APIs, entry)
		}
	}
}
