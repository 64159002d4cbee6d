// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"transapp-auth/internal/security"
)

// Session token backends.
const (
	SessionTokensPostgres = "postgres"
	SessionTokensRedis    = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// RedisAddr is host:port of the Redis server; required when SessionTokenBackend is redis.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// SessionTokenBackend selects where session tokens live: "postgres" (default) or "redis".
	SessionTokenBackend string `mapstructure:"SESSION_TOKEN_BACKEND"`

	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// CredentialKey is the hex-encoded 32-byte key used to open encrypted credential fields.
	CredentialKey string `mapstructure:"CREDENTIAL_KEY"`
	// DefaultDeviceLimit applies when the registry has no user/device_limit value.
	DefaultDeviceLimit int `mapstructure:"DEFAULT_DEVICE_LIMIT"`

	// Env is the application environment (e.g. "development", "production").
	// Error detail is only returned to callers outside production.
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTELServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if any field is invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TOKEN_BACKEND", SessionTokensPostgres)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CREDENTIAL_KEY", "")
	v.SetDefault("DEFAULT_DEVICE_LIMIT", 3)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "transapp-auth")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	cfg.SessionTokenBackend = strings.ToLower(strings.TrimSpace(cfg.SessionTokenBackend))
	switch cfg.SessionTokenBackend {
	case SessionTokensPostgres:
	case SessionTokensRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: REDIS_ADDR must be set when SESSION_TOKEN_BACKEND=redis")
		}
	default:
		return nil, fmt.Errorf("config: SESSION_TOKEN_BACKEND must be postgres or redis, got %q", cfg.SessionTokenBackend)
	}

	if cfg.DefaultDeviceLimit < 0 {
		return nil, errors.New("config: DEFAULT_DEVICE_LIMIT must not be negative")
	}

	if cfg.CredentialKey != "" {
		if _, err := security.ParseKey(cfg.CredentialKey); err != nil {
			return nil, fmt.Errorf("config: CREDENTIAL_KEY: %w", err)
		}
	}

	return &cfg, nil
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

// CredentialKeyBytes returns the decoded credential key. Binaries that open
// credential fields call it; it fails when CREDENTIAL_KEY is unset.
func (c *Config) CredentialKeyBytes() ([]byte, error) {
	if c.CredentialKey == "" {
		return nil, errors.New("config: CREDENTIAL_KEY is not set")
	}
	return security.ParseKey(c.CredentialKey)
}
