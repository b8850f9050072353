// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package config loads process configuration. Sources, in ascending
// priority: built-in defaults, YAML config file, command-line flags.
// Secrets (database URL, session signing secret, geolocation token) also
// fall back to environment variables so they can stay out of config files.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Environment variables consulted when the corresponding config keys are
// empty.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvSessionSecret = "STACKGATE_SESSION_SECRET"
	EnvGeoIPToken    = "STACKGATE_GEOIP_TOKEN"
)

// minSecretBytes mirrors the token codec's requirement so misconfiguration
// fails at boot, not at the first login.
const minSecretBytes = 32

// Config is the complete process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	GeoIP    GeoIPConfig    `koanf:"geoip"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the application HTTP server.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability HTTP server.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// SessionConfig configures the session lifecycle.
type SessionConfig struct {
	Secret     string        `koanf:"secret"`
	CookieName string        `koanf:"cookie_name"`
	TTL        time.Duration `koanf:"ttl"`
}

// GeoIPConfig configures best-effort geolocation enrichment. An empty token
// disables lookups.
type GeoIPConfig struct {
	Endpoint string `koanf:"endpoint"`
	Token    string `koanf:"token"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Addr: ":9090"},
		Session: SessionConfig{
			CookieName: "stackgate_session",
			TTL:        30 * 24 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads configuration from the given file (optional) and flag set
// (optional), overlaying the defaults. Flag names map to config keys
// directly, e.g. --log.level sets log.level.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.In("config").
				Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Only flags the user actually set may override the file; an unset
		// flag's empty default must not clobber file values or defaults.
		changed := pflag.NewFlagSet("changed", pflag.ContinueOnError)
		flags.Visit(changed.AddFlag)
		if err := k.Load(posflag.Provider(changed, ".", k), nil); err != nil {
			return nil, oops.In("config").
				Code("CONFIG_LOAD_FAILED").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.In("config").
			Code("CONFIG_PARSE_FAILED").
			Wrap(err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills secret-bearing fields from the environment when the config
// file left them empty.
func applyEnv(cfg *Config) {
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(EnvDatabaseURL)
	}
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = os.Getenv(EnvSessionSecret)
	}
	if cfg.GeoIP.Token == "" {
		cfg.GeoIP.Token = os.Getenv(EnvGeoIPToken)
	}
}

// Validate enforces the boot-time invariants. The process must not start
// with a missing database URL or a weak signing secret.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.In("config").
			Code("CONFIG_DATABASE_URL_MISSING").
			With("env", EnvDatabaseURL).
			Errorf("database URL is required")
	}
	if len(c.Session.Secret) < minSecretBytes {
		return oops.In("config").
			Code("CONFIG_SESSION_SECRET_INVALID").
			With("env", EnvSessionSecret).
			With("min_bytes", minSecretBytes).
			Errorf("session signing secret is missing or too short")
	}
	if c.Session.TTL <= 0 {
		return oops.In("config").
			Code("CONFIG_SESSION_TTL_INVALID").
			With("ttl", c.Session.TTL.String()).
			Errorf("session TTL must be positive")
	}
	return nil
}
