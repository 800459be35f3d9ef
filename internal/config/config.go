// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string `env:"SERVER_HOST,default=0.0.0.0"`
	Port            int    `env:"SERVER_PORT,default=8080"`
	ReadTimeoutSec  int    `env:"SERVER_READ_TIMEOUT,default=15"`
	WriteTimeoutSec int    `env:"SERVER_WRITE_TIMEOUT,default=15"`
}

// DatabaseConfig controls the PostgreSQL connection. An empty DSN selects the
// in-memory store, which is only suitable for local development.
type DatabaseConfig struct {
	DSN             string `env:"DATABASE_URL"`
	MaxOpenConns    int    `env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int    `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime int    `env:"DATABASE_CONN_MAX_LIFETIME,default=300"`
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	JWTSecret   string `env:"JWT_SECRET"`
	TokenTTLHrs int    `env:"TOKEN_TTL_HOURS,default=168"`
}

// RedisConfig controls the optional token revocation backend. An empty
// address selects the in-process revocation list.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
}

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=20"`
	Burst             int `env:"RATE_LIMIT_BURST,default=40"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=text"`
	Output string `env:"LOG_OUTPUT,default=stdout"`
}

// CORSConfig controls allowed browser origins.
type CORSConfig struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*"`
}

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	CORS      CORSConfig
}

// Load decodes configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return &cfg, nil
}

// Origins returns the parsed CORS origin list.
func (c CORSConfig) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
