package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr  string
	CORSOrigins string // comma separated; empty disables CORS
	RateLimit   int    // API requests per minute per IP; 0 disables

	// TLS
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string
	TLSCAFile   string // client CA; enables mTLS when set

	// Database
	DatabaseURL string

	// Cache
	RedisURL       string // empty selects the in-process cache backend
	CacheKeyPrefix string

	// Logging
	LogLevel string

	// Tuning file path (YAML, optional)
	TuningFile string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:            getEnv("ENV", "development"),
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		CORSOrigins:    getEnv("CORS_ORIGINS", ""),
		RateLimit:      getEnvInt("RATE_LIMIT", 600),
		TLSEnabled:     getEnv("TLS_ENABLED", "") != "",
		TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
		TLSCAFile:      getEnv("TLS_CA_FILE", ""),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/searchrank?sslmode=disable"),
		RedisURL:       getEnv("REDIS_URL", ""),
		CacheKeyPrefix: getEnv("CACHE_KEY_PREFIX", "searchrank"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TuningFile:     getEnv("TUNING_FILE", "tuning.yaml"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsMTLSEnabled returns true if client certificates are verified.
func (c *Config) IsMTLSEnabled() bool {
	return c.TLSEnabled && c.TLSCAFile != ""
}

// SnapshotKey returns the cache key the ranking snapshot is stored under.
func (c *Config) SnapshotKey() string {
	return c.CacheKeyPrefix + ":snapshot"
}
