package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"survey-rewards-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordStore is the ledger's view of the response record store. Every
// mutation is a single transaction: on error nothing has changed.
type RecordStore interface {
	// ReadLedger loads everything a snapshot is derived from at a single
	// point in time.
	ReadLedger(ctx context.Context, respondentID string) (LedgerState, error)
	// ExchangeAcademicForPass consumes the cost oldest accepted, unconsumed
	// academic records and issues one pass.
	ExchangeAcademicForPass(ctx context.Context, respondentID string, cost int, now time.Time) (models.RewardClaim, error)
	// ClaimCommerce marks every accepted, unclaimed commerce record claimed.
	ClaimCommerce(ctx context.Context, respondentID string, now time.Time) (models.RewardClaim, error)
}

// LedgerState is the raw input of a RewardsSnapshot.
type LedgerState struct {
	Records       []models.ResponseRecord
	UnspentPasses int64
}

var snapshotTxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// GormRecordStore implements RecordStore on gorm. Respondent rows are locked
// FOR UPDATE for the length of a claim, and record updates are conditioned on
// the state read under that lock, so overlapping claims cannot both succeed.
type GormRecordStore struct {
	DB *gorm.DB
}

func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{DB: db}
}

// ReadLedger runs its reads in one read-only REPEATABLE READ transaction so
// a claim committing in between cannot pair old records with new passes.
func (s *GormRecordStore) ReadLedger(ctx context.Context, respondentID string) (LedgerState, error) {
	var state LedgerState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Respondent
		err := tx.Select("id").First(&r, "id = ?", respondentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRespondentNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("respondent_id = ?", respondentID).
			Order("submitted_at ASC, id ASC").
			Find(&state.Records).Error; err != nil {
			return err
		}
		return tx.Model(&models.SurveyCreationPass{}).
			Where("respondent_id = ? AND spent_at IS NULL", respondentID).
			Count(&state.UnspentPasses).Error
	}, snapshotTxOptions)
	if err != nil {
		return LedgerState{}, classify("read ledger", err)
	}
	return state, nil
}

func (s *GormRecordStore) ExchangeAcademicForPass(ctx context.Context, respondentID string, cost int, now time.Time) (models.RewardClaim, error) {
	var claim models.RewardClaim
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRespondent(tx, respondentID); err != nil {
			return err
		}

		// FIFO: oldest submissions are consumed first.
		var ids []string
		if err := tx.Model(&models.ResponseRecord{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("respondent_id = ? AND survey_reward_type = ? AND acceptance_status = ? AND consumed_by_pass_id IS NULL",
				respondentID, models.SurveyRewardAcademic, models.AcceptanceAccepted).
			Order("submitted_at ASC, id ASC").
			Limit(cost).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) < cost {
			return ErrInsufficientBalance
		}

		pass := models.SurveyCreationPass{
			ID:           uuid.NewString(),
			RespondentID: respondentID,
			IssuedAt:     now,
		}
		if err := tx.Create(&pass).Error; err != nil {
			return err
		}

		res := tx.Model(&models.ResponseRecord{}).
			Where("id IN ? AND consumed_by_pass_id IS NULL", ids).
			Updates(map[string]any{"consumed_by_pass_id": pass.ID, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrInsufficientBalance
		}

		claim = models.RewardClaim{
			ID:           uuid.NewString(),
			RespondentID: respondentID,
			Kind:         models.ClaimKindSCP,
			Amount:       decimal.NewFromInt(1),
			RecordCount:  len(ids),
			PassID:       &pass.ID,
			PayoutStatus: models.PayoutStatusNone,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.Create(&claim).Error
	})
	if err != nil {
		return models.RewardClaim{}, classify("exchange academic responses", err)
	}
	return claim, nil
}

func (s *GormRecordStore) ClaimCommerce(ctx context.Context, respondentID string, now time.Time) (models.RewardClaim, error) {
	var claim models.RewardClaim
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRespondent(tx, respondentID); err != nil {
			return err
		}

		var unclaimed []models.ResponseRecord
		if err := tx.Select("id", "reward_amount").
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("respondent_id = ? AND survey_reward_type = ? AND acceptance_status = ? AND claimed = ?",
				respondentID, models.SurveyRewardCommerce, models.AcceptanceAccepted, false).
			Order("submitted_at ASC, id ASC").
			Find(&unclaimed).Error; err != nil {
			return err
		}

		total := decimal.Zero
		ids := make([]string, 0, len(unclaimed))
		for _, r := range unclaimed {
			total = total.Add(r.RewardAmount)
			ids = append(ids, r.ID)
		}
		if !total.IsPositive() {
			return ErrNothingToClaim
		}

		claim = models.RewardClaim{
			ID:           uuid.NewString(),
			RespondentID: respondentID,
			Kind:         models.ClaimKindCommerce,
			Amount:       total,
			RecordCount:  len(ids),
			PayoutStatus: models.PayoutStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}

		res := tx.Model(&models.ResponseRecord{}).
			Where("id IN ? AND claimed = ?", ids, false).
			Updates(map[string]any{
				"claimed":    true,
				"claimed_at": now,
				"claim_id":   claim.ID,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrNothingToClaim
		}
		return nil
	})
	if err != nil {
		return models.RewardClaim{}, classify("claim commerce rewards", err)
	}
	return claim, nil
}

// lockRespondent holds the respondent row for the rest of the transaction,
// serializing claims per respondent.
func lockRespondent(tx *gorm.DB, respondentID string) error {
	var r models.Respondent
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&r, "id = ?", respondentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRespondentNotFound
	}
	return err
}

// classify keeps ledger errors as they are and wraps everything else as
// an upstream failure.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, ErrRespondentNotFound),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrNothingToClaim):
		return err
	default:
		return upstream(op, err)
	}
}
