package routes

import (
	"advisy-crm/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterDashboardRoutes enregistre les routes de la page d'accueil.
func RegisterDashboardRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard/stats", handlers.DashboardStatsHandler)
}
