package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"survey-rewards-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SurveyService struct {
	DB  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewSurveyService(db *gorm.DB, log *zap.Logger) *SurveyService {
	return &SurveyService{DB: db, log: log, now: time.Now}
}

type CreateSurveyInput struct {
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	RewardType   models.SurveyRewardType `json:"reward_type"`
	RewardAmount decimal.Decimal         `json:"reward_amount"`
}

func (in CreateSurveyInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidSurvey)
	}
	if !in.RewardType.Valid() {
		return fmt.Errorf("%w: reward_type must be academic or commerce", ErrInvalidSurvey)
	}
	if in.RewardType == models.SurveyRewardCommerce && !in.RewardAmount.IsPositive() {
		return fmt.Errorf("%w: commerce surveys need a positive reward_amount", ErrInvalidSurvey)
	}
	return nil
}

// Create authors a survey by spending the owner's oldest unspent pass. The
// pass and the survey are written in one transaction.
func (s *SurveyService) Create(ctx context.Context, ownerID string, in CreateSurveyInput) (models.Survey, error) {
	if err := in.validate(); err != nil {
		return models.Survey{}, err
	}
	title := norm.NFC.String(strings.TrimSpace(in.Title))
	amount := in.RewardAmount.Round(2)
	if in.RewardType == models.SurveyRewardAcademic {
		amount = decimal.Zero
	}

	var survey models.Survey
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRespondent(tx, ownerID); err != nil {
			return err
		}

		var pass models.SurveyCreationPass
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("respondent_id = ? AND spent_at IS NULL", ownerID).
			Order("issued_at ASC, id ASC").
			First(&pass).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoSurveyPass
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		id := uuid.NewString()
		survey = models.Survey{
			ID:           id,
			OwnerID:      ownerID,
			Title:        title,
			Slug:         surveySlug(title, id),
			Description:  in.Description,
			RewardType:   in.RewardType,
			RewardAmount: amount,
			Status:       models.SurveyStatusOpen,
			PassID:       pass.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&survey).Error; err != nil {
			return err
		}

		res := tx.Model(&models.SurveyCreationPass{}).
			Where("id = ? AND spent_at IS NULL", pass.ID).
			Updates(map[string]any{"spent_at": now, "survey_id": survey.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrNoSurveyPass
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRespondentNotFound) || errors.Is(err, ErrNoSurveyPass) {
			return models.Survey{}, err
		}
		return models.Survey{}, upstream("create survey", err)
	}

	s.log.Info("survey created",
		zap.String("survey_id", survey.ID),
		zap.String("owner_id", ownerID),
		zap.String("pass_id", survey.PassID),
		zap.String("reward_type", string(survey.RewardType)))
	return survey, nil
}

func (s *SurveyService) Get(ctx context.Context, id string) (models.Survey, error) {
	var survey models.Survey
	err := s.DB.WithContext(ctx).First(&survey, "id = ? OR slug = ?", id, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return survey, ErrSurveyNotFound
	}
	if err != nil {
		return survey, upstream("get survey", err)
	}
	return survey, nil
}

// ListOpen returns open surveys, newest first. An empty rewardType lists both kinds.
func (s *SurveyService) ListOpen(ctx context.Context, rewardType models.SurveyRewardType, limit int) ([]models.Survey, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := s.DB.WithContext(ctx).Where("status = ?", models.SurveyStatusOpen)
	if rewardType != "" {
		query = query.Where("reward_type = ?", rewardType)
	}
	var surveys []models.Survey
	if err := query.Order("created_at DESC").Limit(limit).Find(&surveys).Error; err != nil {
		return nil, upstream("list surveys", err)
	}
	return surveys, nil
}

// Close stops a survey from accepting new responses. Closing twice is a no-op.
func (s *SurveyService) Close(ctx context.Context, ownerID, id string) (models.Survey, error) {
	survey, err := s.Get(ctx, id)
	if err != nil {
		return survey, err
	}
	if survey.OwnerID != ownerID {
		return survey, ErrNotSurveyOwner
	}
	if survey.Status == models.SurveyStatusClosed {
		return survey, nil
	}
	if err := s.DB.WithContext(ctx).Model(&survey).Update("status", models.SurveyStatusClosed).Error; err != nil {
		return survey, upstream("close survey", err)
	}
	survey.Status = models.SurveyStatusClosed
	return survey, nil
}

func surveySlug(title, id string) string {
	base := slug.Make(title)
	if base == "" {
		base = "survey"
	}
	return base + "-" + id[:8]
}
