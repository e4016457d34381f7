package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// JSONB représente le type JSONB de PostgreSQL.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// IntegrationSetting stocke la configuration d'un service externe
// (ex: paramètres du pipeline IA-Scan).
type IntegrationSetting struct {
	gorm.Model
	ServiceName string `gorm:"unique;not null" json:"serviceName"`
	IsEnabled   bool   `json:"isEnabled"`
	Settings    JSONB  `gorm:"type:jsonb" json:"settings"`
}
