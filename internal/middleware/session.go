package middleware

import (
	"github.com/gin-gonic/gin"

	"advisy-crm/internal/session"
)

// SessionFrom construit le Context de session passé aux moteurs métier.
// Le rôle actif est résolu dans l'ordre: en-tête X-Active-Role, paramètre
// active_role, premier rôle de l'utilisateur. La catégorie de travail vient
// du paramètre category.
func SessionFrom(c *gin.Context) session.Context {
	sess := session.Context{
		UserID:       c.GetUint("user_id"),
		TenantID:     c.GetUint("agency_id"),
		CategoryHint: c.Query("category"),
	}

	role := c.GetHeader("X-Active-Role")
	if role == "" {
		role = c.Query("active_role")
	}
	if role == "" {
		if roles, ok := c.Get("roles"); ok {
			if names, ok := roles.([]string); ok && len(names) > 0 {
				role = names[0]
			}
		}
	}
	sess.Role = role
	return sess
}
