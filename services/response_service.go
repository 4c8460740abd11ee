package services

import (
	"context"
	"errors"
	"time"

	"survey-rewards-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ResponseService takes survey submissions and the owner's review decisions.
// The ledger only reads what it writes.
type ResponseService struct {
	DB  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewResponseService(db *gorm.DB, log *zap.Logger) *ResponseService {
	return &ResponseService{DB: db, log: log, now: time.Now}
}

// Submit records a pending response. Reward type and amount are copied from
// the survey so later survey edits do not change what was promised.
func (s *ResponseService) Submit(ctx context.Context, respondentID, surveyID string) (models.ResponseRecord, error) {
	db := s.DB.WithContext(ctx)

	var respondent models.Respondent
	if err := db.Select("id").First(&respondent, "id = ?", respondentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ResponseRecord{}, ErrRespondentNotFound
		}
		return models.ResponseRecord{}, upstream("find respondent", err)
	}

	var survey models.Survey
	if err := db.First(&survey, "id = ?", surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ResponseRecord{}, ErrSurveyNotFound
		}
		return models.ResponseRecord{}, upstream("find survey", err)
	}
	if survey.Status != models.SurveyStatusOpen {
		return models.ResponseRecord{}, ErrSurveyClosed
	}
	if survey.OwnerID == respondentID {
		return models.ResponseRecord{}, ErrOwnSurvey
	}

	var existing int64
	if err := db.Model(&models.ResponseRecord{}).
		Where("respondent_id = ? AND survey_id = ?", respondentID, surveyID).
		Count(&existing).Error; err != nil {
		return models.ResponseRecord{}, upstream("check duplicate response", err)
	}
	if existing > 0 {
		return models.ResponseRecord{}, ErrDuplicateResponse
	}

	amount := decimal.Zero
	if survey.RewardType == models.SurveyRewardCommerce {
		amount = survey.RewardAmount
	}
	record := models.ResponseRecord{
		ID:               uuid.NewString(),
		RespondentID:     respondentID,
		SurveyID:         surveyID,
		SurveyRewardType: survey.RewardType,
		RewardAmount:     amount,
		AcceptanceStatus: models.AcceptancePending,
		SubmittedAt:      s.now().UTC(),
	}
	if err := db.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ResponseRecord{}, ErrDuplicateResponse
		}
		return models.ResponseRecord{}, upstream("create response", err)
	}

	s.log.Debug("response submitted",
		zap.String("respondent_id", respondentID),
		zap.String("survey_id", surveyID),
		zap.String("response_id", record.ID))
	return record, nil
}

// Review moves a pending response to accepted or rejected. Only the survey
// owner may review, and only once.
func (s *ResponseService) Review(ctx context.Context, ownerID, responseID string, decision models.AcceptanceStatus) (models.ResponseRecord, error) {
	if decision != models.AcceptanceAccepted && decision != models.AcceptanceRejected {
		return models.ResponseRecord{}, ErrInvalidDecision
	}
	db := s.DB.WithContext(ctx)

	var record models.ResponseRecord
	if err := db.First(&record, "id = ?", responseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return record, ErrResponseNotFound
		}
		return record, upstream("find response", err)
	}

	var survey models.Survey
	if err := db.Unscoped().Select("id", "owner_id").First(&survey, "id = ?", record.SurveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return record, ErrSurveyNotFound
		}
		return record, upstream("find survey", err)
	}
	if survey.OwnerID != ownerID {
		return record, ErrNotSurveyOwner
	}

	now := s.now().UTC()
	res := db.Model(&models.ResponseRecord{}).
		Where("id = ? AND acceptance_status = ?", responseID, models.AcceptancePending).
		Updates(map[string]any{
			"acceptance_status": decision,
			"reviewed_at":       now,
			"updated_at":        now,
		})
	if res.Error != nil {
		return record, upstream("review response", res.Error)
	}
	if res.RowsAffected == 0 {
		return record, ErrInvalidTransition
	}

	record.AcceptanceStatus = decision
	record.ReviewedAt = &now
	s.log.Info("response reviewed",
		zap.String("response_id", responseID),
		zap.String("survey_id", record.SurveyID),
		zap.String("decision", string(decision)))
	return record, nil
}

// ListForSurvey returns a survey's responses to its owner, oldest first.
// An empty status returns every response.
func (s *ResponseService) ListForSurvey(ctx context.Context, ownerID, surveyID string, status models.AcceptanceStatus) ([]models.ResponseRecord, error) {
	db := s.DB.WithContext(ctx)

	var survey models.Survey
	if err := db.Select("id", "owner_id").First(&survey, "id = ?", surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, upstream("find survey", err)
	}
	if survey.OwnerID != ownerID {
		return nil, ErrNotSurveyOwner
	}

	query := db.Where("survey_id = ?", surveyID)
	if status != "" {
		query = query.Where("acceptance_status = ?", status)
	}
	var records []models.ResponseRecord
	if err := query.Order("submitted_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, upstream("list survey responses", err)
	}
	return records, nil
}
