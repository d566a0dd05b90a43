package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"verifycert-backend/internal/shared/auth"
	"verifycert-backend/internal/shared/server/respond"
)

const (
	adminIDKey    = "adminId"
	adminEmailKey = "adminEmail"
)

// Auth validates admin bearer tokens. Requests whose path starts with one of
// publicPrefixes pass through without identity.
func Auth(publicPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if prefix != "" && strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := auth.VerifyJWT(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(adminIDKey, claims.Subject)
		if claims.Email != "" {
			c.Set(adminEmailKey, claims.Email)
		}
		c.Next()
	}
}

// AdminIDFromContext fetches the admin ID set by the auth middleware.
func AdminIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(adminIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// AdminEmailFromContext fetches the admin email set by the auth middleware.
func AdminEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(adminEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}
