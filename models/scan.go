package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// RawJSON stocke un document JSON brut (JSONB côté PostgreSQL) sans le
// contraindre à une structure: les produits détectés sont désérialisés par
// la couche métier.
type RawJSON json.RawMessage

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return []byte(r), nil
}

func (r *RawJSON) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	*r = append((*r)[0:0], bytes...)
	return nil
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[0:0], data...)
	return nil
}

// ScanSession suit un document passé par le pipeline IA-Scan: upload,
// extraction Gemini, validation manuelle, puis application (création du
// client et des polices).
type ScanSession struct {
	gorm.Model
	AgencyID uint `json:"agencyId" gorm:"index"`

	UploadedBy uint    `json:"uploadedBy"`
	ClientID   *uint   `json:"clientId"`
	Client     *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`

	Status       string `json:"status" gorm:"default:'uploaded'"` // uploaded, extracted, validated, failed
	FilePath     string `json:"filePath"`
	FileName     string `json:"fileName"`
	CategoryHint string `json:"categoryHint"`
	Termination  bool   `json:"termination"` // résiliation des anciens contrats détectée

	// Données extraites par Gemini, corrigées dans le dialogue de validation
	ExtractedClient RawJSON `json:"extractedClient" gorm:"type:jsonb"`
	OldProducts     RawJSON `json:"oldProducts" gorm:"type:jsonb"`
	NewProducts     RawJSON `json:"newProducts" gorm:"type:jsonb"`
	FamilyMembers   RawJSON `json:"familyMembers" gorm:"type:jsonb"`
}
