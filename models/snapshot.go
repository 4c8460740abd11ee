package models

import "github.com/shopspring/decimal"

// SCPExchangeCost is the number of accepted academic responses one pass costs.
const SCPExchangeCost = 100

// RewardsSnapshot is derived from a respondent's response records on every
// read. It is never persisted.
type RewardsSnapshot struct {
	RespondentID string `json:"respondent_id"`

	AcademiaAnswered int64 `json:"academia_answered"`
	SCPOwned         int64 `json:"scp_owned"`
	CanClaimSCP      bool  `json:"can_claim_scp"`

	CommerceAnswered         int64           `json:"commerce_answered"`
	CommerceRewardsEarned    decimal.Decimal `json:"commerce_rewards_earned"`
	CommerceRewardsClaimed   decimal.Decimal `json:"commerce_rewards_claimed"`
	AvailableCommerceRewards decimal.Decimal `json:"available_commerce_rewards"`
}

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		&Respondent{},
		&Survey{},
		&SurveyCreationPass{},
		&ResponseRecord{},
		&RewardClaim{},
	}
}
