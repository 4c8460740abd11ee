package models

import (
	"time"

	"gorm.io/gorm"
)

// Respondent is a local snapshot of a platform user who answers surveys.
// Populated by the profile sync worker; ID is the profile service's user ID.
type Respondent struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Username  string    `gorm:"index;not null" json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Soft-deleted respondents are treated as unknown by the ledger.
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
