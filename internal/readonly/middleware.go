// Package readonly freezes the catalog: pages stay browsable while every
// mutating request is refused.
package readonly

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey holds the read-only flag for template rendering.
const ContextKey = "read_only"

const blockedMessage = "The library is read-only right now"

// Middleware blocks write operations while enabled. GET, HEAD and OPTIONS
// always pass, as do the sign-in endpoints.
type Middleware struct {
	enabled bool
}

// NewMiddleware creates a read-only middleware.
func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

// IsEnabled returns whether the catalog is frozen.
func (m *Middleware) IsEnabled() bool {
	return m.enabled
}

// Handler returns a Gin middleware that blocks write operations and exposes
// the flag to templates.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKey, m.enabled)

		if !m.enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		respondBlocked(c)
	}
}

// isAllowedPath lets sessions and tokens be managed while frozen.
func isAllowedPath(path string) bool {
	allowedPaths := []string{
		"/login",
		"/logout",
		"/api/auth/",
	}

	for _, allowed := range allowedPaths {
		if strings.HasPrefix(path, allowed) {
			return true
		}
	}
	return false
}

func respondBlocked(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     blockedMessage,
			"read_only": true,
		})
		return
	}

	c.String(http.StatusForbidden, blockedMessage)
	c.Abort()
}

// Enabled reports the flag stored by Handler.
func Enabled(c *gin.Context) bool {
	return c.GetBool(ContextKey)
}
