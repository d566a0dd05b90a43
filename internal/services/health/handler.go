package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"verifycert-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes exposes /health for liveness and readiness checks.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.status)
}

func (h *Handler) status(c *gin.Context) {
	report := h.Svc.Status(c.Request.Context())
	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	respond.JSON(c, status, report)
}
