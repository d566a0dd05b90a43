package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"verifycert-backend/internal/shared/server/respond"
	"verifycert-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope. A panic after the
// response started (e.g. mid PDF download) only aborts the request.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			for _, key := range []string{TemplateIDKey, DocumentIDKey, BatchIDKey} {
				if v, ok := c.Get(key); ok {
					fields[key] = v
				}
			}
			telemetry.Error("panic", fields)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
			c.Abort()
		}()
		c.Next()
	}
}
