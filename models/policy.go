package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// PolicyProduct est une ligne de products_data: le détail d'un produit au
// sein d'un contrat multi-produits.
type PolicyProduct struct {
	ProductID     uint    `json:"productId"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Premium       float64 `json:"premium"`
	Deductible    float64 `json:"deductible"`
	DurationYears int     `json:"durationYears"`
}

// PolicyProducts est stocké en JSONB dans la colonne products_data.
type PolicyProducts []PolicyProduct

func (p PolicyProducts) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PolicyProducts) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, p)
}

// Policy représente une police d'assurance, une par compagnie distincte
// lors d'une validation de scan.
type Policy struct {
	gorm.Model
	AgencyID uint `json:"agencyId" gorm:"index"`

	ClientID uint    `json:"clientId" gorm:"index;not null"`
	Client   *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`

	ProductID uint     `json:"productId" gorm:"index"`
	Product   *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`

	PolicyNumber string     `json:"policyNumber"`
	Status       string     `json:"status" gorm:"default:'active'"` // active, resilie
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`

	PremiumMonthly float64 `json:"premiumMonthly"`
	PremiumYearly  float64 `json:"premiumYearly"`
	Deductible     float64 `json:"deductible"`
	Currency       string  `json:"currency" gorm:"default:'CHF'"`

	CompanyName  string         `json:"companyName"`
	ProductType  string         `json:"productType"` // catégorie unique ou "multi"
	ProductsData PolicyProducts `json:"productsData" gorm:"type:jsonb"`
	Notes        string         `json:"notes"`
}

func (Policy) TableName() string { return "policies" }
