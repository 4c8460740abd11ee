package models

import "time"

// SurveyCreationPass = 100 accepted academic responses exchanged for the right
// to author one survey.
type SurveyCreationPass struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RespondentID string     `gorm:"index;not null;type:varchar(64)" json:"respondent_id"`
	IssuedAt     time.Time  `gorm:"not null" json:"issued_at"`
	SpentAt      *time.Time `gorm:"index" json:"spent_at,omitempty"`
	SurveyID     *string    `gorm:"type:varchar(64)" json:"survey_id,omitempty"`
}
