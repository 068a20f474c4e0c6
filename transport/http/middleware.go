package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/service"
)

const (
	ctxAdmin = "admin"
	ctxToken = "sessionToken"

	requestIDHeader = "X-Request-ID"
)

// AuthMiddleware creates middleware that validates session tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		// Check if the Authorization header is present and in correct format
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid authorization header"})
			return
		}

		admin, err := authService.ValidateSession(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": core.MessageSessionExpired})
			case errors.Is(err, core.ErrTokenInvalidated), errors.Is(err, core.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
			case errors.Is(err, core.ErrNotAdmin):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Not an admin"})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Session check failed"})
			}
			return
		}

		c.Set(ctxAdmin, admin)
		c.Set(ctxToken, token)

		c.Next()
	}
}

// RequestLogger logs each request with its X-Request-ID, minting one when
// the caller sent none
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		logger.Debug("request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
