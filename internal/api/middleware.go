// internal/api/middleware.go
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"scout-workers/internal/common/auth"
	"scout-workers/internal/common/errors"
	"scout-workers/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	userKey         = "user"
)

// RequestLogger tags every request with an id and logs its outcome.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := map[string]interface{}{
			"requestId":  requestID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request failed", fields)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request rejected", fields)
		default:
			log.Info("request completed", fields)
		}
	}
}

// Recovery turns a panic into an INTERNAL_ERROR response.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"panic": recovered,
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Unexpected error",
			Code:  string(errors.ErrCodeInternal),
		})
	})
}

// CORS reflects allowed origins. An empty list allows any origin outside
// production.
func CORS(allowedOrigins []string, production bool) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSpace(o)] = true
	}
	allowAny := len(allowed) == 0 && !production

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAny || allowed[origin]) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Timeout bounds the request context. Handlers pass it to Execute.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth validates the bearer token and stores the caller as "user".
func RequireAuth(validator auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if validator == nil {
			abortWithError(c, errors.NewConfigurationError("auth.keycloak"))
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWithError(c, errors.NewUnauthorizedError("bearer token required"))
			return
		}

		info, err := validator.ValidateToken(c.Request.Context(), strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(userKey, info)
		c.Next()
	}
}

// CurrentUser returns the caller set by RequireAuth.
func CurrentUser(c *gin.Context) *auth.TokenInfo {
	if v, ok := c.Get(userKey); ok {
		if info, ok := v.(*auth.TokenInfo); ok {
			return info
		}
	}
	return nil
}
