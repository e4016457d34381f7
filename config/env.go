package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv charge le fichier .env s'il existe; sinon on se contente des
// variables d'environnement du processus.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("Pas de fichier .env, utilisation des variables d'environnement")
	}
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
