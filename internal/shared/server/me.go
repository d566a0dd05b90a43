package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"verifycert-backend/internal/shared/server/middleware"
	"verifycert-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint the dashboard uses to check its token.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	adminID := middleware.AdminIDFromContext(c)
	if adminID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{"adminId": adminID}
	if email := middleware.AdminEmailFromContext(c); email != "" {
		response["email"] = email
	}
	respond.OK(c, response)
}
