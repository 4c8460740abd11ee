package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"survey-rewards-system/models"
)

// newTestDB opens a private in-memory SQLite database. A single connection
// keeps the database alive and serializes transactions the way row locks
// would on Postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.Models()...))
	return db
}

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func seedRespondent(t *testing.T, db *gorm.DB, id string) models.Respondent {
	t.Helper()
	r := models.Respondent{ID: id, Username: "user-" + id, Email: id + "@example.com"}
	require.NoError(t, db.Create(&r).Error)
	return r
}

type recordSeed struct {
	rewardType models.SurveyRewardType
	status     models.AcceptanceStatus
	amount     string
	claimed    bool
}

// seedRecords inserts n records with strictly increasing SubmittedAt, each
// for a different survey.
func seedRecords(t *testing.T, db *gorm.DB, respondentID string, n int, seed recordSeed) []models.ResponseRecord {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.ResponseRecord{}).Count(&count).Error)

	amount := decimal.Zero
	if seed.amount != "" {
		amount = decimal.RequireFromString(seed.amount)
	}
	records := make([]models.ResponseRecord, n)
	for i := range records {
		records[i] = models.ResponseRecord{
			ID:               uuid.NewString(),
			RespondentID:     respondentID,
			SurveyID:         fmt.Sprintf("survey-%06d", int(count)+i),
			SurveyRewardType: seed.rewardType,
			RewardAmount:     amount,
			AcceptanceStatus: seed.status,
			SubmittedAt:      baseTime.Add(time.Duration(int(count)+i) * time.Second),
			Claimed:          seed.claimed,
		}
	}
	if n > 0 {
		require.NoError(t, db.CreateInBatches(&records, 100).Error)
	}
	return records
}

func seedPass(t *testing.T, db *gorm.DB, respondentID string, spent bool) models.SurveyCreationPass {
	t.Helper()
	p := models.SurveyCreationPass{ID: uuid.NewString(), RespondentID: respondentID, IssuedAt: baseTime}
	if spent {
		at := baseTime.Add(time.Hour)
		p.SpentAt = &at
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}
