package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"advisy-crm/config"
	"advisy-crm/internal/middleware"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type LoginInput struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler vérifie les identifiants et pose le cookie auth_token.
func LoginHandler(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiants manquants"})
		return
	}

	var user models.User
	if err := config.DB.Preload("Roles").Where("login = ?", input.Login).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Login ou mot de passe incorrect"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Login ou mot de passe incorrect"})
		return
	}

	if user.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Compte désactivé"})
		return
	}

	expiresAt := time.Now().Add(12 * time.Hour)
	claims := jwt.MapClaims{
		"user_id":   user.ID,
		"agency_id": user.AgencyID,
		"exp":       expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(config.JwtKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de générer le token"})
		return
	}

	now := time.Now()
	config.DB.Model(&user).Update("last_login_at", &now)

	var roleNames []string
	for _, role := range user.Roles {
		roleNames = append(roleNames, role.Name)
	}

	c.SetCookie("auth_token", tokenStr, int(time.Until(expiresAt).Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"token": tokenStr,
		"user": gin.H{
			"id":        user.ID,
			"login":     user.Login,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"roles":     roleNames,
		},
	})
}

// LogoutHandler efface le cookie et invalide le cache utilisateur.
func LogoutHandler(c *gin.Context) {
	if userID, err := getUserIDFromContext(c); err == nil && config.RDB != nil {
		if err := config.RDB.Del(config.Ctx, middleware.UserCacheKey(userID)).Err(); err != nil {
			slog.Warn("Invalidation du cache utilisateur en échec", "user_id", userID, "error", err)
		}
	}
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Déconnecté"})
}

// MeHandler retourne le profil de l'utilisateur courant.
func MeHandler(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non identifié"})
		return
	}

	var user models.User
	if err := config.DB.Preload("Roles").First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	c.JSON(http.StatusOK, user)
}
