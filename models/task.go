package models

import (
	"time"

	"gorm.io/gorm"
)

// Task est une tâche de suivi, notamment générée après validation d'un
// scan (relance résiliation, pièces manquantes...).
type Task struct {
	gorm.Model
	AgencyID uint `json:"agencyId" gorm:"index"`

	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Status      string     `json:"status" gorm:"default:'open'"` // open, done, cancelled

	ClientID   *uint `json:"clientId" gorm:"index"`
	AssigneeID *uint `json:"assigneeId" gorm:"index"`
	Assignee   *User `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
}
