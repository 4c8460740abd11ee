package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AcceptanceStatus is set by the survey owner during review.
// pending → accepted | rejected; rejected is terminal.
type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceRejected AcceptanceStatus = "rejected"
)

// ResponseRecord is one respondent's submission to one survey. The reward
// type and amount are copied from the survey when the response is submitted.
type ResponseRecord struct {
	ID               string           `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RespondentID     string           `gorm:"uniqueIndex:idx_respondent_survey;index:idx_respondent_bucket,priority:1;not null;type:varchar(64)" json:"respondent_id"`
	SurveyID         string           `gorm:"uniqueIndex:idx_respondent_survey;index;not null;type:varchar(64)" json:"survey_id"`
	SurveyRewardType SurveyRewardType `gorm:"index:idx_respondent_bucket,priority:2;type:varchar(16);not null" json:"survey_reward_type"`
	RewardAmount     decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"reward_amount"`
	AcceptanceStatus AcceptanceStatus `gorm:"index:idx_respondent_bucket,priority:3;type:varchar(16);not null;default:'pending'" json:"acceptance_status"`
	SubmittedAt      time.Time        `gorm:"not null" json:"submitted_at"`
	ReviewedAt       *time.Time       `json:"reviewed_at,omitempty"`

	// Commerce payout marking.
	Claimed   bool       `gorm:"not null;default:false" json:"claimed"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	ClaimID   *string    `gorm:"type:varchar(64);index" json:"claim_id,omitempty"`

	// Academic records consumed by an SCP exchange.
	ConsumedByPassID *string `gorm:"type:varchar(64);index" json:"consumed_by_pass_id,omitempty"`

	Timestamps
}
