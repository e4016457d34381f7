package config

import (
	"log/slog"
	"os"
)

var JwtKey []byte

// InitJWT lit la clé de signature des tokens depuis l'environnement.
func InitJWT() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("Erreur critique: JWT_SECRET n'est pas définie.")
		os.Exit(1)
	}
	JwtKey = []byte(secret)
}
