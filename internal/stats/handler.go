package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"verifycert-backend/internal/shared/server/respond"
	"verifycert-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.summary)
}

func (h *Handler) summary(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	summary, err := h.Svc.Summary(c.Request.Context())
	if err != nil {
		telemetry.Error("stats.summary_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load stats", nil)
		return
	}
	respond.OK(c, summary)
}
