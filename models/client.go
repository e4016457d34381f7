package models

import (
	"time"

	"gorm.io/gorm"
)

// FamilyLink relie un client à un membre de sa famille (lui-même un client).
type FamilyLink struct {
	gorm.Model
	ClientID         uint   `json:"clientId"`
	RelativeID       uint   `json:"relativeId"`
	RelationshipType string `json:"relationshipType"` // conjoint, enfant, parent...
	Relative         Client `gorm:"foreignKey:RelativeID"`
}

// Client représente un assuré du portefeuille.
type Client struct {
	gorm.Model
	AgencyID uint `json:"agencyId" gorm:"index"`

	LastName  string     `json:"lastName" gorm:"not null"`
	FirstName string     `json:"firstName" gorm:"not null"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	BirthDate *time.Time `json:"birthDate"`
	AvsNumber string     `json:"avsNumber" gorm:"column:avs_number"`

	Address string `json:"address"`
	Npa     string `json:"npa"`
	City    string `json:"city"`
	Canton  string `json:"canton"`

	Nationality   string `json:"nationality"`
	MaritalStatus string `json:"maritalStatus"`
	Comments      string `json:"comments"`
	Status        string `json:"status" gorm:"default:'active'"`

	// Agent attribué: sert au pré-remplissage des parts de commission
	AgentID *uint `json:"agentId" gorm:"index"`
	Agent   *User `json:"agent,omitempty" gorm:"foreignKey:AgentID"`

	FamilyLinks []FamilyLink `json:"familyLinks,omitempty" gorm:"foreignKey:ClientID"`
	Policies    []Policy     `json:"policies,omitempty" gorm:"foreignKey:ClientID"`
}
