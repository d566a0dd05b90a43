package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"verifycert-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log carries domain ids.
const (
	TemplateIDKey = "templateId"
	DocumentIDKey = "documentId"
	BatchIDKey    = "batchId"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		templateID, _ := c.Get(TemplateIDKey)
		documentID, _ := c.Get(DocumentIDKey)
		batchID, _ := c.Get(BatchIDKey)

		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"admin_id":    AdminIDFromContext(c),
			"template_id": templateID,
			"document_id": documentID,
			"batch_id":    batchID,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
