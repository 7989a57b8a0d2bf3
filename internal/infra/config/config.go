// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Logger   LoggerConfig   `yaml:"logger"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Resolver ResolverConfig `yaml:"resolver"`
	Session  SessionConfig  `yaml:"session"`
	Autoplay map[string]any `yaml:"autoplay"`
}

// LoggerConfig represents logging configuration.
type LoggerConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// ResolverConfig represents content resolution tunables.
type ResolverConfig struct {
	CacheTTLSec        int `yaml:"cache_ttl_sec" default:"1800" validate:"gte=1"`
	CacheSize          int `yaml:"cache_size" default:"512" validate:"gte=1"`
	BreakerThreshold   int `yaml:"breaker_threshold" default:"3" validate:"gte=1"`
	BreakerCooldownSec int `yaml:"breaker_cooldown_sec" default:"600" validate:"gte=1"`
	SearchTimeoutSec   int `yaml:"search_timeout_sec" default:"10" validate:"gte=1"`
	FallbackTimeoutSec int `yaml:"fallback_timeout_sec" default:"3" validate:"gte=1"`
	RateLimit          int `yaml:"rate_limit" default:"5" validate:"gte=1"`
	RateBurst          int `yaml:"rate_burst" default:"10" validate:"gte=1"`
}

// SessionConfig represents session lifecycle configuration.
type SessionConfig struct {
	IdleTimeoutSec   int  `yaml:"idle_timeout_sec" default:"300" validate:"gte=1"`
	MaxTrackFailures int  `yaml:"max_track_failures" default:"3" validate:"gte=1,lte=10"`
	AlwaysOn         bool `yaml:"always_on"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// CacheTTL returns the resolver cache TTL as a duration.
func (c *ResolverConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// BreakerCooldown returns the circuit breaker cooldown as a duration.
func (c *ResolverConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSec) * time.Second
}

// SearchTimeout returns the primary provider call timeout as a duration.
func (c *ResolverConfig) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSec) * time.Second
}

// FallbackTimeout returns the per-fallback call timeout as a duration.
func (c *ResolverConfig) FallbackTimeout() time.Duration {
	return time.Duration(c.FallbackTimeoutSec) * time.Second
}

// IdleTimeout returns the session idle timeout as a duration.
func (c *SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}
