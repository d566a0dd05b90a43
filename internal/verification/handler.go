package verification

import (
	"github.com/gin-gonic/gin"

	"verifycert-backend/internal/shared/server/middleware"
	"verifycert-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the public verification route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/verify/:id", h.verify)
}

func (h *Handler) verify(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	respond.OK(c, h.Svc.Verify(c.Request.Context(), id))
}
