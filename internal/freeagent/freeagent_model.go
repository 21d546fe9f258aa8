package freeagent

import (
	"gorm.io/gorm"
)

// Free agents sit outside the roster conflict rules: a person may offer
// themselves for a session regardless of team commitments elsewhere. They
// only enter the weekly conflict check once a captain places them on a
// roster.
const (
	StatusAvailable = "available"
	StatusAssigned  = "assigned"
)

// FreeAgent is a per-session signup by a person seeking a team. Withdrawal
// is a soft transition to assigned, never a delete.
type FreeAgent struct {
	gorm.Model
	SessionID uint    `json:"session_id" gorm:"index;not null"`
	Name      string  `json:"name" gorm:"not null"`
	Email     string  `json:"email" gorm:"not null"`
	Phone     string  `json:"phone"`
	SubjectID *string `json:"subject_id,omitempty"`
	Status    string  `json:"status" gorm:"default:'available'"`
}
