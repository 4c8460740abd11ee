package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"survey-rewards-system/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ObjectUploader stores a blob and returns its public URL.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// StatementService exports a respondent's claim history as CSV.
type StatementService struct {
	DB       *gorm.DB
	uploader ObjectUploader
	log      *zap.Logger
	now      func() time.Time
}

func NewStatementService(db *gorm.DB, uploader ObjectUploader, log *zap.Logger) *StatementService {
	return &StatementService{DB: db, uploader: uploader, log: log, now: time.Now}
}

var statementHeader = []string{"claim_id", "created_at", "kind", "amount", "responses", "payout_status", "paid_out_at"}

// Export writes the statement to object storage and returns its URL.
func (s *StatementService) Export(ctx context.Context, respondentID string) (string, error) {
	var respondent models.Respondent
	if err := s.DB.WithContext(ctx).Select("id").First(&respondent, "id = ?", respondentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrRespondentNotFound
		}
		return "", upstream("find respondent", err)
	}

	var claims []models.RewardClaim
	if err := s.DB.WithContext(ctx).
		Where("respondent_id = ?", respondentID).
		Order("created_at ASC, id ASC").
		Find(&claims).Error; err != nil {
		return "", upstream("list claims", err)
	}

	body, err := renderStatement(claims)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("statements/%s/%s.csv", respondentID, s.now().UTC().Format("20060102T150405Z"))
	url, err := s.uploader.Upload(ctx, key, body, "text/csv")
	if err != nil {
		return "", upstream("upload statement", err)
	}
	s.log.Info("statement exported",
		zap.String("respondent_id", respondentID),
		zap.Int("claims", len(claims)),
		zap.String("key", key))
	return url, nil
}

func renderStatement(claims []models.RewardClaim) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(statementHeader); err != nil {
		return nil, err
	}
	for _, c := range claims {
		paidOut := ""
		if c.PaidOutAt != nil {
			paidOut = c.PaidOutAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			c.ID,
			c.CreatedAt.UTC().Format(time.RFC3339),
			string(c.Kind),
			c.Amount.StringFixed(2),
			fmt.Sprint(c.RecordCount),
			string(c.PayoutStatus),
			paidOut,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
