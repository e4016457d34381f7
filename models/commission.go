package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission est une commission perçue sur une police, répartie entre
// collaborateurs via ses parts.
type Commission struct {
	gorm.Model
	AgencyID uint `json:"agencyId" gorm:"index"`

	ClientID uint    `json:"clientId" gorm:"index"`
	Client   *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`

	PolicyID *uint   `json:"policyId"`
	Policy   *Policy `json:"policy,omitempty" gorm:"foreignKey:PolicyID"`

	Label       string     `json:"label"`
	Category    string     `json:"category"` // health, life, other
	TotalAmount float64    `json:"totalAmount"`
	Status      string     `json:"status" gorm:"default:'pending'"`
	PaidAt      *time.Time `json:"paidAt"`

	Parts []CommissionPart `json:"parts,omitempty" gorm:"foreignKey:CommissionID"`
}

// CommissionPart est la part d'un collaborateur sur une commission.
// Invariant: la somme des taux des parts d'une commission reste <= 100.
type CommissionPart struct {
	gorm.Model
	CommissionID uint `json:"commissionId" gorm:"index;not null"`

	AgentID   uint   `json:"agentId" gorm:"index;not null"`
	AgentName string `json:"agentName"`
	Rate      float64 `json:"rate"`
	Amount    float64 `json:"amount"`
	IsManager bool   `json:"isManager"`
}
