package config

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client
var Ctx = context.Background()

func ConnectRedis() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		slog.Warn("REDIS_ADDR n'est pas définie, le cache sera désactivé.")
		return
	}

	RDB = redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// On vérifie la connexion avant de s'en servir
	if _, err := RDB.Ping(Ctx).Result(); err != nil {
		slog.Error("Connexion Redis impossible", "error", err)
		RDB = nil
		return
	}

	slog.Info("Connexion Redis établie")
}
