// Package config loads client configuration from the environment
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Session cache backends
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the client configuration read once at startup
type Config struct {
	// APIBaseURL is prefixed to every request path. Empty means paths are used as given.
	APIBaseURL string

	SessionBackend   string
	SessionFile      string
	SessionKeyPrefix string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ConsulAddr     string
	ConsulToken    string
	APIServiceName string
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	redisDB, err := strconv.Atoi(GetEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		APIBaseURL:       strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		SessionBackend:   strings.ToLower(GetEnvOrDefault("SESSION_BACKEND", BackendFile)),
		SessionFile:      GetEnvOrDefault("SESSION_FILE", defaultSessionFile()),
		SessionKeyPrefix: GetEnvOrDefault("SESSION_KEY_PREFIX", "noticeboard:"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,
		ConsulAddr:       os.Getenv("CONSUL_HTTP_ADDR"),
		ConsulToken:      os.Getenv("CONSUL_HTTP_TOKEN"),
		APIServiceName:   os.Getenv("API_SERVICE_NAME"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected backend has what it needs
func (c *Config) Validate() error {
	switch c.SessionBackend {
	case BackendFile:
		if c.SessionFile == "" {
			return fmt.Errorf("SESSION_FILE is required for the %s backend", BackendFile)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the %s backend", BackendRedis)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q (expected file, redis or memory)", c.SessionBackend)
	}
	return nil
}

// UseDiscovery reports whether the API base URL should be resolved through consul
func (c *Config) UseDiscovery() bool {
	return c.APIBaseURL == "" && c.ConsulAddr != "" && c.APIServiceName != ""
}

// GetEnvOrDefault retrieves an environment variable or returns a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "noticeboard", "session.json")
	}
	return filepath.Join(home, ".noticeboard", "session.json")
}
