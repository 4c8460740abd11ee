package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SurveyRewardType decides which reward bucket an accepted response lands in.
type SurveyRewardType string

const (
	SurveyRewardAcademic SurveyRewardType = "academic"
	SurveyRewardCommerce SurveyRewardType = "commerce"
)

func (t SurveyRewardType) Valid() bool {
	return t == SurveyRewardAcademic || t == SurveyRewardCommerce
}

type SurveyStatus string

const (
	SurveyStatusOpen   SurveyStatus = "open"
	SurveyStatusClosed SurveyStatus = "closed"
)

// Survey is authored by spending one SurveyCreationPass.
type Survey struct {
	ID           string           `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OwnerID      string           `gorm:"index;not null;type:varchar(64)" json:"owner_id"`
	Title        string           `gorm:"not null" json:"title"`
	Slug         string           `gorm:"uniqueIndex;not null" json:"slug"`
	Description  string           `gorm:"type:text" json:"description,omitempty"`
	RewardType   SurveyRewardType `gorm:"type:varchar(16);not null" json:"reward_type"`
	RewardAmount decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"reward_amount"`
	Status       SurveyStatus     `gorm:"type:varchar(16);not null;default:'open'" json:"status"`
	PassID       string           `gorm:"type:varchar(64)" json:"pass_id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `gorm:"index" json:"-"`
}
