package models

import "gorm.io/gorm"

// Company est une compagnie d'assurance du catalogue.
type Company struct {
	gorm.Model
	Name     string `json:"name" gorm:"not null;index"`
	Status   string `json:"status" gorm:"default:'active'"`
	Category string `json:"category" gorm:"default:'health'"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`

	Products []Product `json:"products,omitempty" gorm:"foreignKey:CompanyID"`
}

func (Company) TableName() string { return "companies" }
