package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"noticeboard/internal/logger"
)

// Keys under which the session is mirrored
const (
	KeyToken = "auth_token"
	KeyUser  = "current_user"
)

// DefaultTimeout bounds a single backend call
const DefaultTimeout = 2 * time.Second

// Cache is a best-effort adapter over a Backend. Every failure is logged and swallowed:
// reads degrade to "absent", writes are dropped.
type Cache struct {
	backend Backend
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger that records swallowed failures
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithTimeout bounds each backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.timeout = d
	}
}

// New creates a Cache over backend
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		logger:  logger.Discard(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) opContext() (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.timeout)
}

// GetString returns the raw value stored under key. A backend failure reads as absent.
func (c *Cache) GetString(key string) (string, bool) {
	ctx, cancel := c.opContext()
	defer cancel()

	value, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Debug("Durable read failed", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

// SetString stores value under key; failures are dropped
func (c *Cache) SetString(key, value string) {
	ctx, cancel := c.opContext()
	defer cancel()

	if err := c.backend.Set(ctx, key, value); err != nil {
		c.logger.Warn("Durable write failed", "key", key, "error", err)
	}
}

// SetJSON stores the JSON encoding of value under key; failures are dropped
func (c *Cache) SetJSON(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Durable write failed", "key", key, "error", err)
		return
	}
	c.SetString(key, string(data))
}

// Remove deletes key. Removing an absent key is not an error.
func (c *Cache) Remove(key string) {
	ctx, cancel := c.opContext()
	defer cancel()

	if err := c.backend.Delete(ctx, key); err != nil {
		c.logger.Warn("Durable delete failed", "key", key, "error", err)
	}
}

// GetJSON decodes the value stored under key. It returns fallback when the key is
// absent or empty, when the value is not valid JSON for T, or when the backend read fails.
func GetJSON[T any](c *Cache, key string, fallback T) T {
	raw, ok := c.GetString(key)
	if !ok || raw == "" {
		return fallback
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		c.logger.Debug("Durable value is not valid JSON", "key", key, "error", err)
		return fallback
	}
	return value
}
