package services

import (
	"context"
	"time"

	"survey-rewards-system/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ClaimResult is returned by both claim operations. For SCP exchanges
// Amount is the number of passes issued; for commerce claims it is money.
type ClaimResult struct {
	Success           bool                    `json:"success"`
	ClaimID           string                  `json:"claim_id"`
	Amount            decimal.Decimal         `json:"amount"`
	ResponsesConsumed int                     `json:"responses_consumed"`
	Snapshot          *models.RewardsSnapshot `json:"snapshot,omitempty"`
}

// RewardsLedger derives reward snapshots from response records and performs
// the SCP exchange and commerce claim transitions.
type RewardsLedger struct {
	store RecordStore
	log   *zap.Logger
	now   func() time.Time
}

func NewRewardsLedger(store RecordStore, log *zap.Logger) *RewardsLedger {
	return &RewardsLedger{store: store, log: log, now: time.Now}
}

// GetSnapshot computes the current RewardsSnapshot. It has no side effects.
func (l *RewardsLedger) GetSnapshot(ctx context.Context, respondentID string) (models.RewardsSnapshot, error) {
	state, err := l.store.ReadLedger(ctx, respondentID)
	if err != nil {
		return models.RewardsSnapshot{}, err
	}
	return BuildSnapshot(respondentID, state.Records, state.UnspentPasses), nil
}

// ClaimSCP exchanges 100 accepted academic responses for one pass.
func (l *RewardsLedger) ClaimSCP(ctx context.Context, respondentID string) (ClaimResult, error) {
	claim, err := l.store.ExchangeAcademicForPass(ctx, respondentID, models.SCPExchangeCost, l.now().UTC())
	if err != nil {
		l.log.Info("scp exchange rejected",
			zap.String("respondent_id", respondentID), zap.Error(err))
		return ClaimResult{}, err
	}
	l.log.Info("scp exchanged",
		zap.String("respondent_id", respondentID),
		zap.String("claim_id", claim.ID),
		zap.Int("responses", claim.RecordCount))

	return l.result(ctx, claim), nil
}

// ClaimCommerceRewards pays out every accepted, unclaimed commerce reward.
func (l *RewardsLedger) ClaimCommerceRewards(ctx context.Context, respondentID string) (ClaimResult, error) {
	claim, err := l.store.ClaimCommerce(ctx, respondentID, l.now().UTC())
	if err != nil {
		l.log.Info("commerce claim rejected",
			zap.String("respondent_id", respondentID), zap.Error(err))
		return ClaimResult{}, err
	}
	l.log.Info("commerce rewards claimed",
		zap.String("respondent_id", respondentID),
		zap.String("claim_id", claim.ID),
		zap.String("amount", claim.Amount.StringFixed(2)),
		zap.Int("responses", claim.RecordCount))

	return l.result(ctx, claim), nil
}

// result attaches a fresh snapshot. The claim is already committed, so a
// failed re-read only drops the snapshot.
func (l *RewardsLedger) result(ctx context.Context, claim models.RewardClaim) ClaimResult {
	res := ClaimResult{
		Success:           true,
		ClaimID:           claim.ID,
		Amount:            claim.Amount,
		ResponsesConsumed: claim.RecordCount,
	}
	snap, err := l.GetSnapshot(ctx, claim.RespondentID)
	if err != nil {
		l.log.Warn("snapshot after claim failed",
			zap.String("respondent_id", claim.RespondentID), zap.Error(err))
		return res
	}
	res.Snapshot = &snap
	return res
}

// BuildSnapshot partitions records by reward type and acceptance status.
// Pending and rejected records never count.
func BuildSnapshot(respondentID string, records []models.ResponseRecord, passesOwned int64) models.RewardsSnapshot {
	snap := models.RewardsSnapshot{
		RespondentID:           respondentID,
		SCPOwned:               passesOwned,
		CommerceRewardsEarned:  decimal.Zero,
		CommerceRewardsClaimed: decimal.Zero,
	}
	for _, r := range records {
		if r.RespondentID != respondentID || r.AcceptanceStatus != models.AcceptanceAccepted {
			continue
		}
		switch r.SurveyRewardType {
		case models.SurveyRewardAcademic:
			if r.ConsumedByPassID == nil {
				snap.AcademiaAnswered++
			}
		case models.SurveyRewardCommerce:
			snap.CommerceAnswered++
			snap.CommerceRewardsEarned = snap.CommerceRewardsEarned.Add(r.RewardAmount)
			if r.Claimed {
				snap.CommerceRewardsClaimed = snap.CommerceRewardsClaimed.Add(r.RewardAmount)
			}
		}
	}
	snap.CanClaimSCP = snap.AcademiaAnswered >= models.SCPExchangeCost
	snap.AvailableCommerceRewards = snap.CommerceRewardsEarned.Sub(snap.CommerceRewardsClaimed)
	return snap
}
