package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimKind tells the two exchange flows apart.
type ClaimKind string

const (
	ClaimKindSCP      ClaimKind = "scp"
	ClaimKindCommerce ClaimKind = "commerce"
)

// PayoutStatus tracks hand-off of claimed commerce money to the wallet service.
type PayoutStatus string

const (
	PayoutStatusNone    PayoutStatus = "none" // scp exchanges carry no money
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusSent    PayoutStatus = "sent"
	PayoutStatusFailed  PayoutStatus = "failed"
)

// RewardClaim is the audit row written by every successful exchange or claim.
type RewardClaim struct {
	ID             string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RespondentID   string          `gorm:"index;not null;type:varchar(64)" json:"respondent_id"`
	Kind           ClaimKind       `gorm:"type:varchar(16);not null" json:"kind"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
	RecordCount    int             `gorm:"not null" json:"record_count"`
	PassID         *string         `gorm:"type:varchar(64)" json:"pass_id,omitempty"`
	PayoutStatus   PayoutStatus    `gorm:"type:varchar(16);index;not null;default:'none'" json:"payout_status"`
	PayoutAttempts int             `gorm:"not null;default:0" json:"payout_attempts"`
	LastError      string          `gorm:"type:text" json:"last_error,omitempty"`
	PaidOutAt      *time.Time      `json:"paid_out_at,omitempty"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
