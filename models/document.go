package models

import "gorm.io/gorm"

// Document est un fichier rattaché à un client (mandat, police scannée...).
// Le fichier vit sur disque; la BD ne garde que le chemin.
type Document struct {
	gorm.Model
	AgencyID uint `json:"agencyId" gorm:"index"`

	ClientID uint  `json:"clientId" gorm:"index;not null"`
	PolicyID *uint `json:"policyId" gorm:"index"`

	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	MimeType string `json:"mimeType"`
	Source   string `json:"source" gorm:"default:'upload'"` // upload, ia_scan, generated
}
