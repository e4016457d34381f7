package routes

import (
	"advisy-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes initialise tous les routes de l'application.
func SetupRoutes(r *gin.Engine) {
	// Routes publiques: login et logout ne demandent pas de jeton.
	RegisterAuthRoutes(r)

	// Tout le reste exige un utilisateur authentifié.
	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware())
	{
		RegisterDashboardRoutes(authRequired)
		RegisterAPIRoutes(authRequired)
	}
}
