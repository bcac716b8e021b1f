// Package devserver is an in-memory stand-in for the notice-board backend's auth
// endpoints. It is used by end-to-end tests and by cmd/devserver for local development.
package devserver

import (
	"log/slog"
	"net/http"

	"noticeboard/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Config controls the response shape, so clients can be exercised against the field
// names different auth libraries use
type Config struct {
	// TokenField names the credential in login/register responses (token, access or key)
	TokenField string
	// UserField names the profile in login/register responses (user or profile)
	UserField string
	// WrapProfile wraps profile responses as {"user": {...}} instead of the bare object
	WrapProfile bool
	// RegisterIssuesToken makes registration log the new user in
	RegisterIssuesToken bool
	// AllowOrigins is passed to the CORS middleware
	AllowOrigins []string
}

// DefaultConfig matches the production backend
func DefaultConfig() Config {
	return Config{
		TokenField:          "token",
		UserField:           "user",
		RegisterIssuesToken: true,
		AllowOrigins:        []string{"http://localhost:8080"},
	}
}

// Server serves the fake backend
type Server struct {
	cfg    Config
	users  *userStore
	logger *slog.Logger
}

// New creates a Server. A nil logger discards logs.
func New(cfg Config, l *slog.Logger) *Server {
	if l == nil {
		l = logger.Discard()
	}
	if cfg.TokenField == "" {
		cfg.TokenField = "token"
	}
	if cfg.UserField == "" {
		cfg.UserField = "user"
	}

	return &Server{
		cfg:    cfg,
		users:  newUserStore(),
		logger: l,
	}
}

// RegisterRoutes builds the HTTP handler
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(s.logger))

	if len(s.cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
		}))
	}

	r.GET("/health", s.healthHandler)

	auth := r.Group("/auth")
	{
		auth.POST("/register/", s.registerHandler)
		auth.POST("/login/", s.loginHandler)
		auth.GET("/profile/image/:user_id/", s.profileImageHandler)

		protected := auth.Group("")
		protected.Use(TokenAuthMiddleware(s.users))
		protected.POST("/logout/", s.logoutHandler)
		protected.GET("/profile/", s.profileHandler)
		protected.PATCH("/profile/", s.updateProfileHandler)
	}

	return r
}
