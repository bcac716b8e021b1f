package devserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TokenAuthMiddleware resolves the bearer token and injects the user into the context
func TokenAuthMiddleware(users *userStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or missing token",
			})
			return
		}

		userID, _, err := users.byToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or missing token",
			})
			return
		}

		c.Set("user_id", userID)
		c.Set("token", token)
		c.Next()
	}
}

// RequestIDMiddleware keeps the caller's X-Request-ID or generates one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()
	}
}

// LoggingMiddleware logs each request with structured attributes
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"response_size", c.Writer.Size(),
		}

		if userID, exists := c.Get("user_id"); exists {
			attrs = append(attrs, "user_id", userID)
		}

		switch {
		case status >= 500:
			logger.Error("Request failed - server error", attrs...)
		case status >= 400:
			logger.Warn("Request failed - client error", attrs...)
		default:
			logger.Info("Request completed", attrs...)
		}
	}
}
