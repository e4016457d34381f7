package handlers

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"advisy-crm/config"
	"advisy-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// invalidateUserCache purge les données Redis d'un utilisateur après un
// changement de rôles ou de taux.
func invalidateUserCache(userID uint) {
	if config.RDB == nil {
		return
	}
	if err := config.RDB.Del(config.Ctx, middleware.UserCacheKey(userID)).Err(); err != nil {
		slog.Warn("Purge du cache utilisateur en échec", "user_id", userID, "error", err)
	}
}

// getUserIDFromContext récupère l'ID utilisateur posé par AuthMiddleware.
func getUserIDFromContext(c *gin.Context) (uint, error) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, errors.New("user_id absent du contexte")
	}
	id, ok := v.(uint)
	if !ok {
		return 0, errors.New("user_id de type inattendu")
	}
	return id, nil
}

// parseDatePtr lit une date au format 2006-01-02; nil si vide ou invalide.
func parseDatePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

// documentsBaseDir retourne la racine de stockage des documents uploadés.
func documentsBaseDir() string {
	if v := os.Getenv("DOCUMENTS_DIR"); v != "" {
		return v
	}
	return "./storage/documents"
}

// ensureDir garantit l'existence d'une directory; erreur si le chemin
// existe et n'est pas une directory.
func ensureDir(path string) error {
	if path == "" {
		return errors.New("empty dir path")
	}
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return errors.New("path exists and is not a directory")
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(path, 0o755)
}

// fileExists vérifie qu'un fichier ordinaire existe.
func fileExists(p string) bool {
	if p == "" {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
