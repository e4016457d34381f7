package main

import (
	"log/slog"
	"os"

	"advisy-crm/config"
	"advisy-crm/internal/handlers"
	"advisy-crm/internal/routes"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadEnv()
	config.InitJWT()
	config.ConnectDB()
	config.ConnectRedis()

	if err := config.InitGoogleServices(); err != nil {
		slog.Warn("Services Google indisponibles, IA-Scan désactivé", "error", err)
	}

	err := config.DB.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Client{},
		&models.FamilyLink{},
		&models.Company{},
		&models.Product{},
		&models.Policy{},
		&models.Commission{},
		&models.CommissionPart{},
		&models.ScanSession{},
		&models.Task{},
		&models.Document{},
		&models.IntegrationSetting{},
	)
	if err != nil {
		slog.Error("Migration de la base en échec", "error", err)
		os.Exit(1)
	}

	go handlers.GlobalHub.Run()

	r := gin.Default()
	r.MaxMultipartMemory = 16 << 20

	routes.SetupRoutes(r)

	port := config.GetEnv("PORT", "8080")
	slog.Info("Serveur démarré", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Arrêt du serveur", "error", err)
		os.Exit(1)
	}
}
