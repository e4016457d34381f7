package models

import "gorm.io/gorm"

// Product est une entrée du catalogue produits. Source vaut "manual" pour
// les produits saisis et "ia_scan" pour ceux créés par la réconciliation.
type Product struct {
	gorm.Model
	Name        string `json:"name" gorm:"not null;index"`
	CompanyID   uint   `json:"companyId" gorm:"index"`
	Company     *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	Category    string `json:"category"`    // health, life, other ou LAMal pour les créations IA
	Subcategory string `json:"subcategory"` // base, complementaire...
	Status      string `json:"status" gorm:"default:'active'"`
	Source      string `json:"source" gorm:"default:'manual'"`
	Description string `json:"description"`

	// Formule d'aperçu de commission, évaluée avec govaluate
	// (variables: Prime, PrimeAnnuelle). Vide = pas d'aperçu.
	CommissionFormula string `json:"commissionFormula"`
}
