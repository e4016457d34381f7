package models

import (
	"time"

	"gorm.io/gorm"
)

// User représente un collaborateur du cabinet (king, admin, manager, agent,
// partner) ou un accès client. Les taux de commission par défaut vivent ici:
// taux générique, taux LCA/VIE, et taux de reversement quand le
// collaborateur encadre des agents.
type User struct {
	gorm.Model
	AgencyID uint `json:"agencyId" gorm:"index"`

	Login     string `json:"login" gorm:"uniqueIndex;not null"`
	Password  string `json:"-"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	PhotoURL  string `json:"photoUrl"`
	Status    string `json:"status" gorm:"default:'active'"`

	// Taux par défaut appliqués à la création d'une part de commission
	CommissionRate    float64 `json:"commissionRate" gorm:"column:commission_rate"`
	CommissionRateLCA float64 `json:"commissionRateLca" gorm:"column:commission_rate_lca"`
	CommissionRateVIE float64 `json:"commissionRateVie" gorm:"column:commission_rate_vie"`

	// Taux de reversement perçus en tant que manager (pas de taux générique)
	ManagerCommissionRateLCA float64 `json:"managerCommissionRateLca" gorm:"column:manager_commission_rate_lca"`
	ManagerCommissionRateVIE float64 `json:"managerCommissionRateVie" gorm:"column:manager_commission_rate_vie"`

	ManagerID *uint `json:"managerId"`
	Manager   *User `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`

	LastLoginAt *time.Time `json:"lastLoginAt"`

	Roles []Role `json:"roles" gorm:"many2many:user_roles;"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
