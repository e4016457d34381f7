package routes

import (
	"advisy-crm/internal/handlers"
	"advisy-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes enregistre les routes publiques d'authentification.
func RegisterAuthRoutes(r *gin.Engine) {
	r.POST("/login", handlers.LoginHandler)
	r.GET("/logout", handlers.LogoutHandler)

	// /me lit le jeton mais vit hors du groupe protégé pour que le
	// frontend puisse sonder la session sans recevoir une redirection.
	r.GET("/me", middleware.AuthMiddleware(), handlers.MeHandler)
}
