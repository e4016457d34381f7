package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"advisy-crm/config"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const IAScanService = "ia_scan"

// IAScanSettings regroupe les réglages du pipeline IA-Scan.
type IAScanSettings struct {
	Model           string  `json:"model"`
	MaxFileSizeMB   int     `json:"maxFileSizeMb"`
	DefaultCategory string  `json:"defaultCategory"`
	MinMatchScore   float64 `json:"minMatchScore"`
}

// GetIAScanSettingsHandler retourne la configuration du pipeline IA-Scan.
func GetIAScanSettingsHandler(c *gin.Context) {
	var settings models.IntegrationSetting
	err := config.DB.Where("service_name = ?", IAScanService).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les réglages"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SaveIAScanSettingsHandler enregistre la configuration du pipeline IA-Scan.
func SaveIAScanSettingsHandler(c *gin.Context) {
	var payload struct {
		IsEnabled bool           `json:"isEnabled"`
		Settings  IAScanSettings `json:"settings"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	settingsJSON, _ := json.Marshal(payload.Settings)

	setting := models.IntegrationSetting{
		ServiceName: IAScanService,
		IsEnabled:   payload.IsEnabled,
		Settings:    make(map[string]interface{}),
	}
	json.Unmarshal(settingsJSON, &setting.Settings)

	err := config.DB.Where(models.IntegrationSetting{ServiceName: IAScanService}).
		Assign(setting).FirstOrCreate(&setting).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible d'enregistrer les réglages: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Réglages enregistrés"})
}
