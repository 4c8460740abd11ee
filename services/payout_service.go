package services

import (
	"context"
	"time"

	"survey-rewards-system/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxPayoutAttempts is how many times a commerce claim is offered to the
// wallet service before it is parked as failed.
const MaxPayoutAttempts = 5

const payoutCurrency = "USD"

// PayoutService hands committed commerce claims to the wallet service. The
// ledger never waits on it: a claim is final once its transaction commits.
type PayoutService struct {
	DB     *gorm.DB
	sender PayoutSender
	log    *zap.Logger
	now    func() time.Time
}

func NewPayoutService(db *gorm.DB, sender PayoutSender, log *zap.Logger) *PayoutService {
	return &PayoutService{DB: db, sender: sender, log: log, now: time.Now}
}

// PayoutBatchResult summarizes one dispatch run.
type PayoutBatchResult struct {
	Sent   int
	Failed int
}

// DispatchPending sends up to limit pending commerce claims, oldest first.
func (s *PayoutService) DispatchPending(ctx context.Context, limit int) (PayoutBatchResult, error) {
	var result PayoutBatchResult

	var claims []models.RewardClaim
	if err := s.DB.WithContext(ctx).
		Where("kind = ? AND payout_status = ?", models.ClaimKindCommerce, models.PayoutStatusPending).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&claims).Error; err != nil {
		return result, upstream("list pending payouts", err)
	}

	for _, claim := range claims {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		err := s.sender.SendPayout(ctx, PayoutRequest{
			ClaimID:      claim.ID,
			RespondentID: claim.RespondentID,
			Amount:       claim.Amount,
			Currency:     payoutCurrency,
		})
		now := s.now().UTC()

		if err == nil {
			if uerr := s.DB.WithContext(ctx).Model(&models.RewardClaim{}).
				Where("id = ? AND payout_status = ?", claim.ID, models.PayoutStatusPending).
				Updates(map[string]any{
					"payout_status":   models.PayoutStatusSent,
					"payout_attempts": claim.PayoutAttempts + 1,
					"paid_out_at":     now,
					"last_error":      "",
					"updated_at":      now,
				}).Error; uerr != nil {
				return result, upstream("mark payout sent", uerr)
			}
			result.Sent++
			s.log.Info("payout sent",
				zap.String("claim_id", claim.ID),
				zap.String("respondent_id", claim.RespondentID),
				zap.String("amount", claim.Amount.StringFixed(2)))
			continue
		}

		attempts := claim.PayoutAttempts + 1
		status := models.PayoutStatusPending
		if attempts >= MaxPayoutAttempts {
			status = models.PayoutStatusFailed
		}
		if uerr := s.DB.WithContext(ctx).Model(&models.RewardClaim{}).
			Where("id = ? AND payout_status = ?", claim.ID, models.PayoutStatusPending).
			Updates(map[string]any{
				"payout_status":   status,
				"payout_attempts": attempts,
				"last_error":      err.Error(),
				"updated_at":      now,
			}).Error; uerr != nil {
			return result, upstream("record payout failure", uerr)
		}
		if status == models.PayoutStatusFailed {
			result.Failed++
		}
		s.log.Warn("payout attempt failed",
			zap.String("claim_id", claim.ID),
			zap.Int("attempts", attempts),
			zap.String("status", string(status)),
			zap.Error(err))
	}
	return result, nil
}
