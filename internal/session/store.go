// Package session holds the client's authentication state (bearer token and current
// user), mirrors it into durable storage and exposes the login/register/profile actions
// that change it.
package session

import (
	"log/slog"
	"sync"

	"noticeboard/internal/cache"
	"noticeboard/internal/logger"
)

// Store is the application-wide session state. It is seeded from the cache once, at
// construction, and never re-read afterwards. Each mutation is atomic.
type Store struct {
	mu     sync.RWMutex
	token  string
	user   User
	cache  *cache.Cache
	logger *slog.Logger
}

// NewStore creates a Store seeded from c
func NewStore(c *cache.Cache, l *slog.Logger) *Store {
	if l == nil {
		l = logger.Discard()
	}

	token, _ := c.GetString(cache.KeyToken)
	user := cache.GetJSON[User](c, cache.KeyUser, nil)

	l.Debug("Session restored",
		"authenticated", token != "",
		"user_id", user.ID(),
	)

	return &Store{
		token:  token,
		user:   user,
		cache:  c,
		logger: l,
	}
}

// IsAuthenticated reports whether a token is held. The user is not consulted.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the bearer credential, or "" when unauthenticated
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns a copy of the cached profile, or nil when unknown
func (s *Store) CurrentUser() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// SetAuth replaces both token and user. Only non-empty values are persisted, so clearing
// a field here leaves the previous durable entry in place until ClearAuth.
func (s *Store) SetAuth(token string, user User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = user.Clone()

	if token != "" {
		s.cache.SetString(cache.KeyToken, token)
	}
	if user != nil {
		s.cache.SetJSON(cache.KeyUser, user)
	}
}

// SetCurrentUser replaces the user and persists it unconditionally; nil is stored as null
func (s *Store) SetCurrentUser(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = user.Clone()
	s.cache.SetJSON(cache.KeyUser, user)
}

// ClearAuth drops the token and user from memory and durable storage
func (s *Store) ClearAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil
	s.cache.Remove(cache.KeyToken)
	s.cache.Remove(cache.KeyUser)
}
